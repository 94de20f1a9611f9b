package periods

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gescom-erp/gescom-erp/internal/shared"
)

// Handler exposes fiscal-period endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the periods handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches period endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/{id}/close", h.Close)
}

type createPeriodRequest struct {
	Year      int    `json:"year" validate:"required,gte=1970,lte=2200"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list periods", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"periods": list})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}
	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)
	period, err := h.service.Create(r.Context(), req.Year, start, end)
	if err != nil {
		switch {
		case errors.Is(err, ErrPeriodOverlap), errors.Is(err, ErrYearExists):
			shared.WriteError(w, http.StatusConflict, "period_conflict", err.Error())
		case errors.Is(err, ErrInvalidRange):
			shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		default:
			h.logger.Error("create period", slog.Any("error", err))
			shared.WriteError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
		}
		return
	}
	shared.WriteJSON(w, http.StatusCreated, period)
}

type closePeriodRequest struct {
	ActorID int64 `json:"actorId" validate:"required"`
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_id", "invalid period id")
		return
	}
	var req closePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}
	period, err := h.service.Close(r.Context(), id, req.ActorID)
	if err != nil {
		switch {
		case errors.Is(err, ErrPeriodNotFound):
			shared.WriteError(w, http.StatusNotFound, "period_not_found", err.Error())
		case errors.Is(err, ErrPeriodAlreadyClosed):
			shared.WriteError(w, http.StatusConflict, "period_already_closed", err.Error())
		default:
			h.logger.Error("close period", slog.Any("error", err))
			shared.WriteError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
		}
		return
	}
	shared.WriteJSON(w, http.StatusOK, period)
}
