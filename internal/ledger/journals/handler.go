package journals

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gescom-erp/gescom-erp/internal/shared"
)

// Handler exposes journal reference-data endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the journals handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches journal endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
}

type journalRequest struct {
	Code              string  `json:"code" validate:"required,max=8"`
	Libelle           string  `json:"libelle" validate:"required"`
	Type              string  `json:"type" validate:"required,oneof=VENTE ACHAT TRESORERIE OD"`
	CounterpartNumero *string `json:"counterpartNumero"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"journals": list})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}
	journal, err := h.service.Create(r.Context(), Input{
		Code:              req.Code,
		Libelle:           req.Libelle,
		Type:              JournalType(req.Type),
		CounterpartNumero: req.CounterpartNumero,
	})
	if err != nil {
		if errors.Is(err, ErrCodeTaken) {
			shared.WriteError(w, http.StatusConflict, "code_taken", err.Error())
			return
		}
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}
	shared.WriteJSON(w, http.StatusCreated, journal)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_id", "invalid journal id")
		return
	}
	var req journalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	journal, err := h.service.Update(r.Context(), id, Input{
		Libelle:           req.Libelle,
		Type:              JournalType(req.Type),
		CounterpartNumero: req.CounterpartNumero,
	})
	if err != nil {
		if errors.Is(err, ErrJournalNotFound) {
			shared.WriteError(w, http.StatusNotFound, "journal_not_found", err.Error())
			return
		}
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}
	shared.WriteJSON(w, http.StatusOK, journal)
}
