package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gescom-erp/gescom-erp/internal/ledger/journals"
	"github.com/gescom-erp/gescom-erp/internal/ledger/periods"
	"github.com/gescom-erp/gescom-erp/internal/sequences"
	"github.com/gescom-erp/gescom-erp/internal/shared"
)

// Invalidator retires derived report caches after a successful mutation.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler exposes ledger entry endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	invalidator Invalidator
	validate    *validator.Validate
}

// NewHandler constructs the ledger handler. invalidator may be nil.
func NewHandler(logger *slog.Logger, service *Service, invalidator Invalidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, invalidator: invalidator, validate: validator.New()}
}

// MountRoutes attaches entry endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/validate", h.Validate)
}

type lineRequest struct {
	AccountNumero string  `json:"accountNumero" validate:"required"`
	Libelle       string  `json:"libelle"`
	Debit         float64 `json:"debit" validate:"gte=0"`
	Credit        float64 `json:"credit" validate:"gte=0"`
}

type createEntryRequest struct {
	JournalID    int64         `json:"journalId" validate:"required"`
	Date         string        `json:"date" validate:"required,datetime=2006-01-02"`
	Libelle      string        `json:"libelle" validate:"required"`
	Lines        []lineRequest `json:"lines" validate:"required,min=2,dive"`
	CreatedBy    int64         `json:"createdBy" validate:"required"`
	PieceNumber  string        `json:"pieceNumber"`
	SourceKind   string        `json:"sourceKind"`
	SourceID     string        `json:"sourceId"`
	PreValidated bool          `json:"preValidated"`
}

func toLineInputs(reqs []lineRequest) []LineInput {
	lines := make([]LineInput, 0, len(reqs))
	for _, l := range reqs {
		lines = append(lines, LineInput{
			AccountNumero: l.AccountNumero,
			Libelle:       l.Libelle,
			Debit:         l.Debit,
			Credit:        l.Credit,
		})
	}
	return lines
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	input := CreateEntryInput{
		JournalID:    req.JournalID,
		Date:         date,
		Libelle:      req.Libelle,
		Lines:        toLineInputs(req.Lines),
		CreatedBy:    req.CreatedBy,
		PieceNumber:  req.PieceNumber,
		PreValidated: req.PreValidated,
	}
	if req.SourceKind != "" {
		id, err := uuid.Parse(req.SourceID)
		if err != nil {
			shared.WriteError(w, http.StatusUnprocessableEntity, "validation", "sourceId must be a UUID")
			return
		}
		input.Source = &SourceRef{Kind: SourceKind(req.SourceKind), ID: id}
	}
	entry, err := h.service.CreateEntry(r.Context(), input)
	if err != nil {
		h.writeEntryError(w, "create entry", err)
		return
	}
	h.invalidate(r.Context())
	shared.WriteJSON(w, http.StatusCreated, entry)
}

type updateEntryRequest struct {
	Date    string        `json:"date" validate:"required,datetime=2006-01-02"`
	Libelle string        `json:"libelle"`
	Lines   []lineRequest `json:"lines" validate:"required,min=2,dive"`
	ActorID int64         `json:"actorId" validate:"required"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	entry, err := h.service.UpdateEntry(r.Context(), UpdateEntryInput{
		EntryID: id,
		Date:    date,
		Libelle: req.Libelle,
		Lines:   toLineInputs(req.Lines),
		ActorID: req.ActorID,
	})
	if err != nil {
		h.writeEntryError(w, "update entry", err)
		return
	}
	h.invalidate(r.Context())
	shared.WriteJSON(w, http.StatusOK, entry)
}

type validateEntryRequest struct {
	ValidatorID int64 `json:"validatorId" validate:"required"`
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var req validateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}
	entry, err := h.service.ValidateEntry(r.Context(), id, req.ValidatorID)
	if err != nil {
		h.writeEntryError(w, "validate entry", err)
		return
	}
	h.invalidate(r.Context())
	shared.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id); err != nil {
		h.writeEntryError(w, "delete entry", err)
		return
	}
	h.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		h.writeEntryError(w, "get entry", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	periodID, _ := strconv.ParseInt(q.Get("periodId"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	entries, err := h.service.ListEntries(r.Context(), periodID, limit, offset)
	if err != nil {
		h.logger.Error("list entries", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_id", "invalid entry id")
		return 0, false
	}
	return id, true
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.invalidator == nil {
		return
	}
	if err := h.invalidator.Invalidate(ctx); err != nil {
		h.logger.Warn("report cache invalidation", slog.Any("error", err))
	}
}

func (h *Handler) writeEntryError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrUnbalanced),
		errors.Is(err, ErrTooFewLines),
		errors.Is(err, ErrLineBothSides),
		errors.Is(err, ErrNegativeAmount),
		errors.Is(err, ErrDateOutOfRange):
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
	case errors.Is(err, ErrEntryNotFound):
		shared.WriteError(w, http.StatusNotFound, "entry_not_found", err.Error())
	case errors.Is(err, journals.ErrJournalNotFound):
		shared.WriteError(w, http.StatusNotFound, "journal_not_found", err.Error())
	case errors.Is(err, periods.ErrNoPeriodForDate):
		shared.WriteError(w, http.StatusUnprocessableEntity, "no_period", err.Error())
	case errors.Is(err, periods.ErrPeriodClosed):
		shared.WriteError(w, http.StatusConflict, "period_closed", err.Error())
	case errors.Is(err, ErrAlreadyValidated), errors.Is(err, ErrEntryImmutable):
		shared.WriteError(w, http.StatusConflict, "entry_state", err.Error())
	case errors.Is(err, ErrDuplicatePiece):
		shared.WriteError(w, http.StatusConflict, "duplicate_piece", err.Error())
	case errors.Is(err, sequences.ErrCounterNotConfigured):
		h.logger.Error(op, slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "counter_missing", err.Error())
	case errors.Is(err, sequences.ErrSequenceContention):
		shared.WriteError(w, http.StatusConflict, "sequence_contention", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
	}
}
