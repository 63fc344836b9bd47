package projection

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/centbook/centbook/internal/platform/httpx"
	"github.com/centbook/centbook/internal/shared"
)

// Handler exposes projection and forecast endpoints.
type Handler struct {
	logger     *slog.Logger
	engine     *Engine
	forecaster *Forecaster
	validate   *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, engine *Engine, forecaster *Forecaster) *Handler {
	return &Handler{logger: logger, engine: engine, forecaster: forecaster, validate: validator.New()}
}

// MountRoutes registers projection routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/generate", h.generate)
	r.Get("/", h.list)
	r.Get("/analysis", h.analysis)
	r.Put("/actuals", h.updateActuals)
	r.Post("/actuals/sync", h.syncActuals)
	r.Get("/forecast", h.forecast)
}

type generateRequest struct {
	StartDate         string `json:"start_date" validate:"required"`
	EndDate           string `json:"end_date" validate:"required"`
	IncludeHistorical *bool  `json:"include_historical"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	var req generateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, err := shared.ParseDate(req.StartDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date must be YYYY-MM-DD")
		return
	}
	end, err := shared.ParseDate(req.EndDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be YYYY-MM-DD")
		return
	}
	includeHistorical := true
	if req.IncludeHistorical != nil {
		includeHistorical = *req.IncludeHistorical
	}
	records, err := h.engine.GenerateProjections(r.Context(), ownerID, start, end, includeHistorical)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projections": records, "total": len(records)})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	records, err := h.engine.GetProjections(r.Context(), ownerID, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projections": records, "total": len(records)})
}

func (h *Handler) analysis(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	analyses, err := h.engine.GetCashFlowAnalysis(r.Context(), ownerID, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"analysis": analyses, "total": len(analyses)})
}

type updateActualsRequest struct {
	Date           string `json:"date" validate:"required"`
	ActualIncome   string `json:"actual_income" validate:"required"`
	ActualExpenses string `json:"actual_expenses" validate:"required"`
}

func (h *Handler) updateActuals(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	var req updateActualsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := shared.ParseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	income, err := decimal.NewFromString(req.ActualIncome)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "actual_income must be a decimal string")
		return
	}
	expenses, err := decimal.NewFromString(req.ActualExpenses)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "actual_expenses must be a decimal string")
		return
	}
	rec, err := h.engine.UpdateActuals(r.Context(), ownerID, date, income, expenses)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

type syncActualsRequest struct {
	Date string `json:"date" validate:"required"`
}

func (h *Handler) syncActuals(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	var req syncActualsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	date, err := shared.ParseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	rec, err := h.engine.UpdateActualsFromLedger(r.Context(), ownerID, date)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) forecast(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	start := shared.Today()
	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start must be YYYY-MM-DD")
			return
		}
		start = parsed
	}
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "days must be an integer")
			return
		}
		days = parsed
	}
	points, err := h.forecaster.Forecast(r.Context(), ownerID, start, days)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"forecast": points, "total": len(points)})
}

func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	fromRaw, toRaw := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if fromRaw == "" || toRaw == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from and to query parameters are required")
		return time.Time{}, time.Time{}, false
	}
	from, err := shared.ParseDate(fromRaw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := shared.ParseDate(toRaw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrRecordNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
