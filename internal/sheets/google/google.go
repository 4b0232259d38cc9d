package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"fintrack/internal/log"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is used when no sheet name is configured.
const DefaultSheetName = "Transactions"

var ErrMissingCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

var _ ports.TransactionAppender = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON is a service account key. Leave empty when Options
	// carry their own authentication.
	CredentialsJSON []byte
	Options         []goption.ClientOption
	Logger          *log.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentSheets)
	}

	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	if len(cfg.CredentialsJSON) > 0 {
		opts = append(opts, goption.WithCredentialsJSON(cfg.CredentialsJSON))
	}
	opts = append(opts, cfg.Options...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created", "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: id, sheet: sheet, logger: logger}, nil
}

// LoadCredentials resolves service account credentials from an inline JSON
// value, a file path, or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func LoadCredentials(inlineJSON, file string) ([]byte, error) {
	if s := strings.TrimSpace(inlineJSON); s != "" {
		return []byte(s), nil
	}
	if strings.TrimSpace(file) == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, ErrMissingCredentials
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// AppendTransaction appends r below the last used row of the sheet.
func (c *Client) AppendTransaction(ctx context.Context, r ports.Row) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:H", c.sheet)
	vr := &gsheet.ValueRange{Values: [][]any{r.Values()}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.DebugContext(ctx, "Appended row", log.FieldSheetsRef, ref, log.FieldEventID, r.EventID)
	return ref, nil
}
