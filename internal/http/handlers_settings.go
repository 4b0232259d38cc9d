package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	s.renderSettings(w, r, http.StatusOK, nil)
}

func (s *Server) renderSettings(w http.ResponseWriter, r *http.Request, status int, flash *Flash) {
	ctx := r.Context()
	settings, err := s.settings.Load(ctx, userIDFrom(ctx))
	if err != nil {
		s.serverError(w, r, "Settings load failed", err, log.OpRead)
		return
	}
	s.render(w, r, status, "settings.html", pageData{
		Title:    "Settings",
		Username: settings.User.Username,
		Flash:    flash,
		Form:     r.PostForm,
		Data:     settings,
	})
}

// settingsResult redirects back to the settings page on success and shows
// it again with the problem otherwise.
func (s *Server) settingsResult(w http.ResponseWriter, r *http.Request, err error, success, op string) {
	if err == nil {
		NewResponse().Flash(FlashSuccess, success).Redirect("/settings").Write(w)
		return
	}
	status, msg, ok := userError(err)
	if !ok {
		s.serverError(w, r, "Settings update failed", err, op)
		return
	}
	s.renderSettings(w, r, status, &Flash{Kind: FlashError, Message: msg})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	balance, err := core.ParseBalance(r.PostForm.Get("initial_balance"))
	if err == nil {
		_, err = s.settings.CreateAccount(ctx, userIDFrom(ctx), services.NewAccount{
			Name:           sanitizeInput(r.PostForm.Get("name")),
			Type:           sanitizeInput(r.PostForm.Get("type")),
			InitialBalance: balance,
			Currency:       sanitizeInput(r.PostForm.Get("currency")),
		})
	}
	s.settingsResult(w, r, err, "Account created.", log.OpCreate)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	typ, err := core.ParseCategoryType(r.PostForm.Get("type"))
	if err == nil {
		_, err = s.settings.CreateCategory(ctx, userIDFrom(ctx), services.NewCategory{
			Name: sanitizeInput(r.PostForm.Get("name")),
			Type: typ,
		})
	}
	s.settingsResult(w, r, err, "Category created.", log.OpCreate)
}

func (s *Server) handleDefaultCurrency(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	err := s.settings.UpdateDefaultCurrency(ctx, userIDFrom(ctx), r.PostForm.Get("currency"))
	s.settingsResult(w, r, err, "Default currency updated.", log.OpUpdate)
}
