package http

import (
	"errors"
	"fmt"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// validationMessages maps errors caused by user input to the text shown
// next to the form.
var validationMessages = []struct {
	err error
	msg string
}{
	{core.ErrInvalidAmount, "Amount must be a positive number."},
	{core.ErrMissingAccount, "Choose an account."},
	{core.ErrMissingCategory, "Choose a category."},
	{core.ErrNoteTooLong, fmt.Sprintf("Note must be at most %d characters.", core.MaxNoteLength)},
	{core.ErrEmptyName, "Name is required."},
	{core.ErrAccountNameTooLong, fmt.Sprintf("Name must be at most %d characters.", core.MaxNameLength)},
	{core.ErrInvalidCurrency, "Currency must be a three letter code such as TRY or USD."},
	{core.ErrInvalidCategory, "Type must be Income or Expense."},
	{core.ErrEmptyUsername, "Username is required."},
	{core.ErrPasswordTooShort, fmt.Sprintf("Password must be at least %d characters.", core.MinPasswordLength)},
	{errInvalidDate, "Date must use the YYYY-MM-DD format."},
	{services.ErrForbidden, "Unknown account or category."},
	{services.ErrUsernameTaken, "That username is already taken."},
	{services.ErrInvalidCredentials, "Invalid username or password."},
}

// userError returns the status and message for an error the user can fix.
// ok is false for anything else, which callers treat as a 500.
func userError(err error) (status int, msg string, ok bool) {
	for _, v := range validationMessages {
		if !errors.Is(err, v.err) {
			continue
		}
		switch v.err {
		case services.ErrUsernameTaken:
			return http.StatusConflict, v.msg, true
		case services.ErrInvalidCredentials:
			return http.StatusUnauthorized, v.msg, true
		default:
			return http.StatusUnprocessableEntity, v.msg, true
		}
	}
	return 0, "", false
}
