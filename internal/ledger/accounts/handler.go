package accounts

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gescom-erp/gescom-erp/internal/shared"
)

// Handler exposes chart of accounts endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the accounts handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches account endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{numero}", h.Get)
	r.Put("/{numero}", h.Update)
}

type accountRequest struct {
	Numero   string `json:"numero" validate:"required,min=1,max=12"`
	Libelle  string `json:"libelle" validate:"required"`
	IsActive *bool  `json:"isActive"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "1"
	list, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"accounts": list})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.Get(r.Context(), chi.URLParam(r, "numero"))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			shared.WriteError(w, http.StatusNotFound, "account_not_found", err.Error())
			return
		}
		h.logger.Error("get account", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
		return
	}
	shared.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}
	account, err := h.service.Create(r.Context(), CreateInput{Numero: req.Numero, Libelle: req.Libelle})
	if err != nil {
		if errors.Is(err, ErrNumeroTaken) {
			shared.WriteError(w, http.StatusConflict, "numero_taken", err.Error())
			return
		}
		shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}
	shared.WriteJSON(w, http.StatusCreated, account)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	account, err := h.service.Update(r.Context(), chi.URLParam(r, "numero"), UpdateInput{
		Numero:   req.Numero,
		Libelle:  req.Libelle,
		IsActive: active,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountNotFound):
			shared.WriteError(w, http.StatusNotFound, "account_not_found", err.Error())
		case errors.Is(err, ErrAccountReferenced):
			shared.WriteError(w, http.StatusConflict, "account_referenced", err.Error())
		case errors.Is(err, ErrNumeroTaken):
			shared.WriteError(w, http.StatusConflict, "numero_taken", err.Error())
		default:
			shared.WriteError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		}
		return
	}
	shared.WriteJSON(w, http.StatusOK, account)
}
