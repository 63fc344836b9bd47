package recurring

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/centbook/centbook/internal/platform/httpx"
	"github.com/centbook/centbook/internal/shared"
)

// Handler exposes recurring definition endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers recurring routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/due", h.getDue)
	r.Post("/process", h.process)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/toggle", h.toggleActive)
	r.Post("/{id}/skip", h.skipNext)
}

type createDefinitionRequest struct {
	Kind        string `json:"kind" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category"`
	Frequency   string `json:"frequency" validate:"required"`
	Interval    int    `json:"interval" validate:"omitempty,min=1"`
	StartDate   string `json:"start_date" validate:"required"`
	EndDate     string `json:"end_date" validate:"omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	if ownerID == "" {
		httpx.RespondError(w, shared.ErrOwnerRequired)
		return
	}
	var req createDefinitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := req.toInput(ownerID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	def, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, def)
}

func (req createDefinitionRequest) toInput(ownerID string) (CreateDefinitionInput, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return CreateDefinitionInput{}, errors.New("amount must be a decimal string")
	}
	startDate, err := shared.ParseDate(req.StartDate)
	if err != nil {
		return CreateDefinitionInput{}, errors.New("start_date must be YYYY-MM-DD")
	}
	var endDate *time.Time
	if req.EndDate != "" {
		parsed, err := shared.ParseDate(req.EndDate)
		if err != nil {
			return CreateDefinitionInput{}, errors.New("end_date must be YYYY-MM-DD")
		}
		endDate = &parsed
	}
	interval := req.Interval
	if interval == 0 {
		interval = 1
	}
	return CreateDefinitionInput{
		OwnerID:     ownerID,
		Kind:        EventKind(req.Kind),
		Amount:      amount,
		Currency:    req.Currency,
		Description: req.Description,
		Category:    req.Category,
		Frequency:   Frequency(req.Frequency),
		Interval:    interval,
		StartDate:   startDate,
		EndDate:     endDate,
	}, nil
}

type updateDefinitionRequest struct {
	Amount      *string `json:"amount"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	EndDate     *string `json:"end_date"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	if ownerID == "" {
		httpx.RespondError(w, shared.ErrOwnerRequired)
		return
	}
	var req updateDefinitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	var input UpdateDefinitionInput
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal string")
			return
		}
		input.Amount = &amount
	}
	input.Description = req.Description
	input.Category = req.Category
	if req.EndDate != nil {
		endDate, err := shared.ParseDate(*req.EndDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be YYYY-MM-DD")
			return
		}
		input.EndDate = &endDate
	}
	def, err := h.service.Update(r.Context(), ownerID, chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, def)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	if err := h.service.Delete(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	def, err := h.service.Get(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, def)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	activeOnly := r.URL.Query().Get("active") == "true"
	defs, err := h.service.List(r.Context(), ownerID, activeOnly)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"definitions": defs, "total": len(defs)})
}

func (h *Handler) getDue(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	asOf := shared.Today()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}
	items, err := h.service.GetDue(r.Context(), ownerID, asOf)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"due": items, "total": len(items)})
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	result, err := h.service.Process(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "processing already in progress for this owner")
			return
		}
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"materialized": result.Processed,
		"errors":       result.Errors(),
	})
}

func (h *Handler) toggleActive(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	def, err := h.service.ToggleActive(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, def)
}

func (h *Handler) skipNext(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	def, err := h.service.SkipNext(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, def)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrDefinitionNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
