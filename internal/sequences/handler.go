package sequences

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gescom-erp/gescom-erp/internal/shared"
)

// Handler exposes the allocator over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the sequences handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches sequence endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{documentType}/allocate", h.Allocate)
	r.Put("/{documentType}", h.Configure)
	r.Get("/{documentType}", h.Get)
}

func (h *Handler) Allocate(w http.ResponseWriter, r *http.Request) {
	documentType := chi.URLParam(r, "documentType")
	number, err := h.service.Allocate(r.Context(), documentType)
	if err != nil {
		switch {
		case errors.Is(err, ErrCounterNotConfigured):
			shared.WriteError(w, http.StatusInternalServerError, "counter_not_configured", err.Error())
		case errors.Is(err, ErrSequenceContention):
			shared.WriteError(w, http.StatusConflict, "sequence_contention", err.Error())
		default:
			h.logger.Error("allocate number", slog.String("document_type", documentType), slog.Any("error", err))
			shared.WriteError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
		}
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"number": number})
}

type configureRequest struct {
	Format      string `json:"format"`
	Prefix      string `json:"prefix"`
	Padding     int    `json:"padding" validate:"gte=0,lte=12"`
	ResetPolicy string `json:"resetPolicy" validate:"omitempty,oneof=NONE YEARLY MONTHLY"`
}

func (h *Handler) Configure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}
	counter := Counter{
		DocumentType: chi.URLParam(r, "documentType"),
		Format:       req.Format,
		Prefix:       req.Prefix,
		Padding:      req.Padding,
		ResetPolicy:  ResetPolicy(req.ResetPolicy),
	}
	if err := h.service.Configure(r.Context(), counter); err != nil {
		h.logger.Error("configure counter", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	counter, err := h.service.Get(r.Context(), chi.URLParam(r, "documentType"))
	if err != nil {
		if errors.Is(err, ErrCounterNotConfigured) {
			shared.WriteError(w, http.StatusNotFound, "counter_not_configured", err.Error())
			return
		}
		h.logger.Error("get counter", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
		return
	}
	shared.WriteJSON(w, http.StatusOK, counter)
}
