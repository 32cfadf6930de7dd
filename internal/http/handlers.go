package http

import (
	"errors"
	"net/http"

	"finflow/internal/app"
	"finflow/internal/core"
	applog "finflow/internal/log"
	"finflow/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Ready(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Dashboard())
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Expenses())
}

type transactionsResponse struct {
	Transactions []core.Transaction `json:"transactions"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: s.app.Transactions()})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := services.TransactionInput{
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
		Category:    p.Get("category"),
		Type:        p.Get("type"),
	}
	tx, err := s.app.AddTransaction(r.Context(), in)
	if err != nil {
		s.fail(w, r, "Failed to record transaction", applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	st, err := s.app.Cycle(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to evaluate budget cycle", applog.OpEvaluate, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type outcomeResponse struct {
	Outcome services.CycleOutcome `json:"outcome"`
}

func (s *Server) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.app.ConfirmReset(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to apply weekly reset", applog.OpReset, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse{Outcome: outcome})
}

func (s *Server) handleDeclineReset(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.app.DeclineReset(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to decline weekly reset", applog.OpReset, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse{Outcome: outcome})
}

type promptResponse struct {
	Error  string `json:"error"`
	Prompt string `json:"prompt"`
}

// handleManualReset clears the log only when the body carries confirm=true;
// otherwise it answers 428 with the question to put to the user.
func (s *Server) handleManualReset(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !isTruthy(p.Get("confirm")) {
		writeJSON(w, http.StatusPreconditionRequired, promptResponse{
			Error:  "confirmation required",
			Prompt: services.ManualResetPrompt,
		})
		return
	}
	if err := s.app.ManualReset(r.Context()); err != nil {
		s.fail(w, r, "Failed to reset transaction log", applog.OpReset, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Accounts())
}

type adviceResponse struct {
	Advice string `json:"advice"`
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, adviceResponse{Advice: s.app.Advice(r.Context())})
}

type themeResponse struct {
	Theme  core.ThemeInfo   `json:"theme"`
	Themes []core.ThemeInfo `json:"themes"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, themeResponse{Theme: s.app.Theme(), Themes: core.Themes()})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	info, err := s.app.SetTheme(r.Context(), p.Get("theme"))
	if err != nil {
		s.fail(w, r, "Failed to change theme", applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusOK, themeResponse{Theme: info, Themes: core.Themes()})
}

// fail maps err to a status: validation problems are 422, a missing
// pending reset is 409, everything else is logged and 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg, op string, err error) {
	switch {
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, app.ErrNoPendingReset):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.access.LogError(r.Context(), msg, err, op, nil)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
