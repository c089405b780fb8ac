package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/me/godag/internal/dep"
	"github.com/me/godag/pkg/model"
)

func (s *Server) handleGetTaskInstance(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	ti, err := s.store.GetTaskInstance(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if ti == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("task instance", id))
		return
	}
	respondOK(w, reqID, ti)
}

// depStatusReport is the payload for GET /tis/{id}/deps.
type depStatusReport struct {
	TaskInstanceID string       `json:"task_instance_id"`
	Met            bool         `json:"met"`
	Failing        []dep.Status `json:"failing"`
}

// depContextFromQuery builds an evaluation context from query parameters.
// strict=true makes ignorable failures block; the ignore_* flags disable
// individual checks.
func (s *Server) depContextFromQuery(r *http.Request) *dep.Context {
	q := r.URL.Query()
	var opts []dep.ContextOption
	if q.Get("strict") == "true" {
		opts = append(opts, dep.WithStrict())
	}
	for _, f := range []dep.Flag{dep.FlagIgnoreAllDeps, dep.FlagIgnoreTaskDeps, dep.FlagIgnoreInRetryPeriod} {
		if q.Get(string(f)) == "true" {
			opts = append(opts, dep.WithFlag(f))
		}
	}
	return dep.NewContext(s.store, opts...)
}

// handleGetDepStatuses reports every failing dependency for a task instance
// without changing its state.
func (s *Server) handleGetDepStatuses(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	ti, err := s.store.GetTaskInstance(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if ti == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("task instance", id))
		return
	}

	failing, err := s.evaluator.GetAllStatuses(r.Context(), ti, s.depContextFromQuery(r))
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	// Independent contexts: IsMet must not see the diagnostic pass's memoized reads.
	met, err := s.evaluator.IsMet(r.Context(), ti, s.depContextFromQuery(r))
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if failing == nil {
		failing = []dep.Status{}
	}
	respondOK(w, reqID, depStatusReport{TaskInstanceID: ti.ID, Met: met, Failing: failing})
}

// handleForceRun queues a task instance manually. Unlike the scheduler's
// automatic path this evaluates without strict mode, so ignorable failures
// (retry backoff, future logical date) do not block unless strict=true is
// passed. Blocking failures produce a 409 with the reasons.
func (s *Server) handleForceRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	ti, err := s.store.GetTaskInstance(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if ti == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("task instance", id))
		return
	}
	if !ti.State.CanTransitionTo(model.TaskStateQueued) {
		respondError(w, reqID, http.StatusConflict, &model.APIError{
			Code:    model.ErrConflict,
			Message: "task instance in state " + string(ti.State) + " cannot be queued",
		})
		return
	}

	met, err := s.evaluator.IsMet(r.Context(), ti, s.depContextFromQuery(r))
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if !met {
		failing, err := s.evaluator.GetAllStatuses(r.Context(), ti, s.depContextFromQuery(r))
		if err != nil {
			respondError(w, reqID, http.StatusInternalServerError,
				&model.APIError{Code: model.ErrInternal, Message: err.Error()})
			return
		}
		apiErr := &model.APIError{Code: model.ErrConflict, Message: "dependencies not met"}
		for _, st := range failing {
			apiErr.Details = append(apiErr.Details, model.FieldError{Field: "dependency", Message: st.Reason})
		}
		respondError(w, reqID, http.StatusConflict, apiErr)
		return
	}

	queuedAt := s.clock.Now()
	ti.State = model.TaskStateQueued
	ti.QueuedAt = &queuedAt
	if err := s.store.UpdateTaskInstance(r.Context(), ti); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	s.logger.Info("task instance force-queued", "ti", ti.Key())
	respondOK(w, reqID, ti)
}
