package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
	"github.com/ramiqadoumi/go-prodplan/internal/planning"
	"github.com/ramiqadoumi/go-prodplan/internal/postgres"
	"github.com/ramiqadoumi/go-prodplan/services/planner"
)

const defaultStatsWindowDays = 30

// Service is the slice of the planning engine the HTTP layer needs.
// Satisfied by *planner.Planner.
type Service interface {
	CreatePlan(ctx context.Context, req planner.CreatePlanRequest) (*planner.CreatePlanResult, error)
	GetPlan(ctx context.Context, planID string) (*domain.PlanWithTasks, error)
	ListPlans(ctx context.Context, from, to time.Time, shift *domain.Shift) ([]domain.Plan, error)
	ConfirmPlan(ctx context.Context, planID string) (*domain.Plan, error)
	CancelPlan(ctx context.Context, planID string) (*domain.Plan, error)
	DeletePlan(ctx context.Context, planID string) error
	ReorderTasks(ctx context.Context, planID string, updates []postgres.SequenceUpdate) error
	StartTask(ctx context.Context, taskID, operator string) (*domain.Task, error)
	CompleteTask(ctx context.Context, taskID string, actualSeconds *int64, notes, issues string) (*domain.Task, error)
	HoldTask(ctx context.Context, taskID string) (*domain.Task, error)
	CancelTask(ctx context.Context, taskID string) (*domain.Task, error)
	UpdateTaskPriority(ctx context.Context, taskID string, priority domain.Priority) (*domain.Task, error)
	GetStatistics(ctx context.Context, windowDays int) (*planning.Statistics, error)
}

// REST exposes the planning engine over HTTP.
type REST struct {
	planner Service
	logger  *slog.Logger
}

// NewREST creates a new REST handler.
func NewREST(p Service, logger *slog.Logger) *REST {
	return &REST{planner: p, logger: logger}
}

// Routes mounts all planning endpoints on a chi router.
func (h *REST) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/plans", h.CreatePlan)
		r.Get("/plans", h.ListPlans)
		r.Get("/plans/{id}", h.GetPlan)
		r.Delete("/plans/{id}", h.DeletePlan)
		r.Post("/plans/{id}/confirm", h.ConfirmPlan)
		r.Post("/plans/{id}/cancel", h.CancelPlan)
		r.Post("/plans/{id}/reorder", h.ReorderTasks)

		r.Post("/tasks/{id}/start", h.StartTask)
		r.Post("/tasks/{id}/complete", h.CompleteTask)
		r.Post("/tasks/{id}/hold", h.HoldTask)
		r.Post("/tasks/{id}/cancel", h.CancelTask)
		r.Put("/tasks/{id}/priority", h.UpdateTaskPriority)

		r.Get("/statistics", h.GetStatistics)
	})
}

// CreatePlan handles POST /api/v1/plans.
func (h *REST) CreatePlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("planner-api").Start(r.Context(), "api.create_plan")
	defer span.End()

	var req planner.CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.planner.CreatePlan(ctx, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("plan.id", result.Plan.ID))

	writeJSON(w, http.StatusCreated, result)
}

// ListPlans handles GET /api/v1/plans?from=...&to=...&shift=....
func (h *REST) ListPlans(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'from' date, expected YYYY-MM-DD")
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'to' date, expected YYYY-MM-DD")
		return
	}
	if from.IsZero() {
		from = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, 7)
	}

	var shift *domain.Shift
	if s := r.URL.Query().Get("shift"); s != "" {
		sh := domain.Shift(s)
		if !sh.Valid() {
			writeError(w, http.StatusBadRequest, "invalid 'shift', expected DAY, NIGHT or FULL_DAY")
			return
		}
		shift = &sh
	}

	plans, err := h.planner.ListPlans(r.Context(), from, to, shift)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// GetPlan handles GET /api/v1/plans/{id}.
func (h *REST) GetPlan(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.planner.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// DeletePlan handles DELETE /api/v1/plans/{id}.
func (h *REST) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.DeletePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmPlan handles POST /api/v1/plans/{id}/confirm.
func (h *REST) ConfirmPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.planner.ConfirmPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// CancelPlan handles POST /api/v1/plans/{id}/cancel.
func (h *REST) CancelPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.planner.CancelPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// ReorderRequest is the JSON body for POST /api/v1/plans/{id}/reorder.
type ReorderRequest struct {
	Updates []postgres.SequenceUpdate `json:"updates"`
}

// ReorderTasks handles POST /api/v1/plans/{id}/reorder.
func (h *REST) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	planID := chi.URLParam(r, "id")
	if err := h.planner.ReorderTasks(r.Context(), planID, req.Updates); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartTaskRequest is the JSON body for POST /api/v1/tasks/{id}/start.
type StartTaskRequest struct {
	Operator string `json:"operator,omitempty"`
}

// StartTask handles POST /api/v1/tasks/{id}/start.
func (h *REST) StartTask(w http.ResponseWriter, r *http.Request) {
	var req StartTaskRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	task, err := h.planner.StartTask(r.Context(), chi.URLParam(r, "id"), req.Operator)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// CompleteTaskRequest is the JSON body for POST /api/v1/tasks/{id}/complete.
// ActualSeconds is optional: when omitted the engine derives it from the
// task's start time.
type CompleteTaskRequest struct {
	ActualSeconds *int64 `json:"actual_seconds,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Issues        string `json:"issues,omitempty"`
}

// CompleteTask handles POST /api/v1/tasks/{id}/complete.
func (h *REST) CompleteTask(w http.ResponseWriter, r *http.Request) {
	var req CompleteTaskRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	task, err := h.planner.CompleteTask(r.Context(), chi.URLParam(r, "id"), req.ActualSeconds, req.Notes, req.Issues)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HoldTask handles POST /api/v1/tasks/{id}/hold.
func (h *REST) HoldTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.planner.HoldTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// CancelTask handles POST /api/v1/tasks/{id}/cancel.
func (h *REST) CancelTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.planner.CancelTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdatePriorityRequest is the JSON body for PUT /api/v1/tasks/{id}/priority.
type UpdatePriorityRequest struct {
	Priority domain.Priority `json:"priority"`
}

// UpdateTaskPriority handles PUT /api/v1/tasks/{id}/priority.
func (h *REST) UpdateTaskPriority(w http.ResponseWriter, r *http.Request) {
	var req UpdatePriorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	task, err := h.planner.UpdateTaskPriority(r.Context(), chi.URLParam(r, "id"), req.Priority)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// GetStatistics handles GET /api/v1/statistics?window=30.
func (h *REST) GetStatistics(w http.ResponseWriter, r *http.Request) {
	window := defaultStatsWindowDays
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'window', expected an integer day count")
			return
		}
		window = parsed
	}

	stats, err := h.planner.GetStatistics(r.Context(), window)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Healthz handles GET /healthz.
func (h *REST) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Readyz returns a GET /readyz handler that runs each backend probe
// (Postgres ping, Redis ping) with a short timeout.
func (h *REST) Readyz(probes ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, probe := range probes {
			if err := probe(ctx); err != nil {
				writeError(w, http.StatusServiceUnavailable, "not ready: "+err.Error())
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}

// writeDomainError maps typed domain errors onto HTTP status codes. Anything
// unmapped is a 500 and gets logged; client errors are not.
func (h *REST) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		existsErr     *domain.PlanExistsError
		planNotFound  *domain.PlanNotFoundError
		taskNotFound  *domain.TaskNotFoundError
		transitionErr *domain.InvalidTransitionError
		stateErr      *domain.PlanStateError
		validationErr *domain.ValidationError
		collabErr     *domain.CollaboratorError
	)
	switch {
	case errors.As(err, &existsErr):
		writeError(w, http.StatusConflict, existsErr.Error())
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, transitionErr.Error())
	case errors.As(err, &stateErr):
		writeError(w, http.StatusConflict, stateErr.Error())
	case errors.As(err, &planNotFound):
		writeError(w, http.StatusNotFound, planNotFound.Error())
	case errors.As(err, &taskNotFound):
		writeError(w, http.StatusNotFound, taskNotFound.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &collabErr):
		h.logger.Error("collaborator failure",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, collabErr.Error())
	default:
		h.logger.Error("unhandled error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
