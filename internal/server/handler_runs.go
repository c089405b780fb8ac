package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/me/godag/internal/scheduler"
	"github.com/me/godag/internal/timeutil"
	"github.com/me/godag/pkg/model"
)

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	dagID := chi.URLParam(r, "id")
	opts := listOptionsFromQuery(r)

	dag, err := s.store.GetDag(r.Context(), dagID)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if dag == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("dag", dagID))
		return
	}

	runs, total, err := s.store.ListDagRunsByDag(r.Context(), dagID, opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondList(w, reqID, runs, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(runs) < total,
	})
}

// handleTriggerRun materializes a new run for a DAG. The logical date, if
// given, must carry an explicit UTC offset; naive timestamps are rejected.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	dagID := chi.URLParam(r, "id")

	dag, err := s.store.GetDag(r.Context(), dagID)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if dag == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("dag", dagID))
		return
	}

	var req model.TriggerRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, reqID, http.StatusBadRequest,
				model.NewValidationError("invalid request body: "+err.Error()))
			return
		}
	}

	var logicalDate *time.Time
	if req.LogicalDate != "" {
		t, err := timeutil.ParseAware(req.LogicalDate)
		if err != nil {
			apiErr := model.NewValidationError("logical_date: " + err.Error())
			if errors.Is(err, model.ErrNaiveTimestamp) {
				apiErr.Details = []model.FieldError{{Field: "logical_date", Message: model.ErrNaiveTimestamp.Error()}}
			}
			respondError(w, reqID, http.StatusBadRequest, apiErr)
			return
		}
		logicalDate = &t
	}

	run, err := scheduler.MaterializeRun(r.Context(), s.store, dag, logicalDate, s.clock)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	s.logger.Info("run triggered", "dag_id", dagID, "run_id", run.ID)
	respondCreated(w, reqID, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	run, err := s.store.GetDagRun(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if run == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("run", id))
		return
	}
	respondOK(w, reqID, run)
}

func (s *Server) handleListTaskInstances(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	run, err := s.store.GetDagRun(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if run == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("run", id))
		return
	}

	tis, err := s.store.ListTaskInstancesByRun(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondOK(w, reqID, tis)
}
