package http

import (
	"encoding/json"
	"net/http"
	"net/url"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	s.renderDashboard(w, r, http.StatusOK, nil, nil)
}

// renderDashboard builds the dashboard for the account filter in the query
// string. flash and form are set when a rejected transaction is shown again.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, flash *Flash, form url.Values) {
	ctx := r.Context()
	d, err := s.dashboard.Build(ctx, userIDFrom(ctx), r.URL.Query().Get("account_id"))
	if err != nil {
		s.serverError(w, r, "Dashboard build failed", err, log.OpRead)
		return
	}
	s.render(w, r, status, "index.html", pageData{
		Title:    "Dashboard",
		Username: d.User.Username,
		Flash:    flash,
		Form:     form,
		Data:     d,
	})
}

type transactionsPage struct {
	Transactions []core.Transaction
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	user, err := s.auth.User(ctx, userID)
	if err != nil {
		s.serverError(w, r, "User lookup failed", err, log.OpRead)
		return
	}
	txs, err := s.transactions.List(ctx, userID, 0)
	if err != nil {
		s.serverError(w, r, "Transaction list failed", err, log.OpList)
		return
	}
	s.render(w, r, http.StatusOK, "transactions.html", pageData{
		Title:    "Transactions",
		Username: user.Username,
		Data:     transactionsPage{Transactions: txs},
	})
}

// createTransaction accepts a form post from the dashboard or a JSON body.
// Form posts redirect back to the dashboard, JSON posts get a JSON reply.
func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid request format").Write(w)
		return
	}

	in, err := transactionInput(p)
	if err == nil {
		var tx core.Transaction
		tx, err = s.transactions.Create(ctx, userIDFrom(ctx), in)
		if err == nil {
			if p.IsJSON() {
				writeJSON(w, http.StatusCreated, map[string]any{
					"id":     tx.ID,
					"amount": tx.Amount.StringFixed(2),
					"date":   tx.Date.Format(dateLayout),
				})
				return
			}
			NewResponse().Flash(FlashSuccess, "Transaction added.").Redirect("/").Write(w)
			return
		}
	}

	status, msg, ok := userError(err)
	if !ok {
		s.serverError(w, r, "Transaction create failed", err, log.OpCreate)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Transaction rejected", log.FieldError, err)
	if p.IsJSON() {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	s.renderDashboard(w, r, status, &Flash{Kind: FlashError, Message: msg}, p.formData)
}

func transactionInput(p *RequestBodyParser) (services.NewTransaction, error) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return services.NewTransaction{}, err
	}
	accountID, err := parseID(p.Get("account_id"))
	if err != nil {
		return services.NewTransaction{}, core.ErrMissingAccount
	}
	categoryID, err := parseID(p.Get("category_id"))
	if err != nil {
		return services.NewTransaction{}, core.ErrMissingCategory
	}
	date, err := parseDate(p.Get("date"))
	if err != nil {
		return services.NewTransaction{}, err
	}
	return services.NewTransaction{
		AccountID:  accountID,
		CategoryID: categoryID,
		Amount:     amount,
		Date:       date,
		Note:       p.Get("note"),
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
