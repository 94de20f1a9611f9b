package reports

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gescom-erp/gescom-erp/internal/ledger/periods"
	"github.com/gescom-erp/gescom-erp/internal/shared"
)

// Handler exposes the read-only report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the reports handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/balance-sheet", h.BalanceSheet)
	r.Get("/income-statement", h.IncomeStatement)
	r.Get("/tva", h.TVA)
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), start, end)
	if err != nil {
		h.reportError(w, "trial balance", err)
		return
	}
	if r.URL.Query().Get("format") == "display" {
		shared.WriteJSON(w, http.StatusOK, NewTrialBalanceView(tb))
		return
	}
	shared.WriteJSON(w, http.StatusOK, tb)
}

func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := time.Parse("2006-01-02", r.URL.Query().Get("asOf"))
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_date", "asOf must be YYYY-MM-DD")
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), asOf)
	if err != nil {
		h.reportError(w, "balance sheet", err)
		return
	}
	if !bs.Equilibre {
		h.logger.Warn("balance sheet mismatch",
			slog.String("asOf", asOf.Format("2006-01-02")),
			slog.Float64("actif", bs.TotalActif),
			slog.Float64("passif", bs.TotalPassif))
	}
	shared.WriteJSON(w, http.StatusOK, bs)
}

func (h *Handler) IncomeStatement(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	is, err := h.service.IncomeStatement(r.Context(), start, end)
	if err != nil {
		h.reportError(w, "income statement", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, is)
}

func (h *Handler) TVA(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	summary, err := h.service.TVA(r.Context(), start, end)
	if err != nil {
		h.reportError(w, "tva summary", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	start, err := time.Parse("2006-01-02", r.URL.Query().Get("startDate"))
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_date", "startDate must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse("2006-01-02", r.URL.Query().Get("endDate"))
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_date", "endDate must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (h *Handler) reportError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrInvalidRange) || errors.Is(err, periods.ErrNoPeriodForDate) {
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	shared.WriteError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
}
