package bills

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/centbook/centbook/internal/platform/httpx"
	"github.com/centbook/centbook/internal/shared"
)

// Handler exposes bill endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers bill routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/upcoming", h.upcoming)
	r.Get("/summary", h.summary)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/pay", h.markPaid)
	r.Post("/{id}/unpay", h.markUnpaid)
}

type createBillRequest struct {
	Payee        string `json:"payee" validate:"required"`
	Amount       string `json:"amount" validate:"required"`
	Frequency    string `json:"frequency" validate:"required"`
	ReminderDays int    `json:"reminder_days" validate:"omitempty,min=0"`
	FirstDueDate string `json:"first_due_date" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	if ownerID == "" {
		httpx.RespondError(w, shared.ErrOwnerRequired)
		return
	}
	var req createBillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal string")
		return
	}
	firstDue, err := shared.ParseDate(req.FirstDueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "first_due_date must be YYYY-MM-DD")
		return
	}
	bill, err := h.service.Create(r.Context(), CreateBillInput{
		OwnerID:      ownerID,
		Payee:        req.Payee,
		Amount:       amount,
		Frequency:    Frequency(req.Frequency),
		ReminderDays: req.ReminderDays,
		FirstDueDate: firstDue,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

type updateBillRequest struct {
	Payee        *string `json:"payee"`
	Amount       *string `json:"amount"`
	ReminderDays *int    `json:"reminder_days"`
	Active       *bool   `json:"is_active"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	var req updateBillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	input := UpdateBillInput{
		Payee:        req.Payee,
		ReminderDays: req.ReminderDays,
		Active:       req.Active,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal string")
			return
		}
		input.Amount = &amount
	}
	bill, err := h.service.Update(r.Context(), ownerID, chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
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
	bill, err := h.service.Get(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	activeOnly := r.URL.Query().Get("active") == "true"
	billsList, err := h.service.List(r.Context(), ownerID, activeOnly)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bills": billsList, "total": len(billsList)})
}

func (h *Handler) upcoming(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	upcoming, err := h.service.GetUpcoming(r.Context(), ownerID, shared.Today())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"upcoming": upcoming, "total": len(upcoming)})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	summary, err := h.service.GetSummary(r.Context(), ownerID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

type markPaidRequest struct {
	PaidDate string `json:"paid_date"`
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	var req markPaidRequest
	// empty body means "paid today"
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	paidDate := shared.Today()
	if req.PaidDate != "" {
		parsed, err := shared.ParseDate(req.PaidDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "paid_date must be YYYY-MM-DD")
			return
		}
		paidDate = parsed
	}
	bill, err := h.service.MarkPaid(r.Context(), ownerID, chi.URLParam(r, "id"), paidDate)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) markUnpaid(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	bill, err := h.service.MarkUnpaid(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrBillNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
