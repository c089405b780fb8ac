package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/me/godag/pkg/model"
)

func (s *Server) handleListDags(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	opts := listOptionsFromQuery(r)

	dags, total, err := s.store.ListDags(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondList(w, reqID, dags, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(dags) < total,
	})
}

// handleCreateDag registers a DAG from a YAML (or JSON) definition body.
func (s *Server) handleCreateDag(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("read body: "+err.Error()))
		return
	}

	dag, err := s.parser.ParseDag(body)
	if err != nil {
		status := http.StatusBadRequest
		apiErr := model.NewValidationError(err.Error())
		if errors.Is(err, model.ErrNaiveTimestamp) {
			apiErr.Details = []model.FieldError{{Field: "timestamp", Message: model.ErrNaiveTimestamp.Error()}}
		}
		respondError(w, reqID, status, apiErr)
		return
	}

	existing, err := s.store.GetDag(r.Context(), dag.ID)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if existing != nil {
		respondError(w, reqID, http.StatusConflict,
			&model.APIError{Code: model.ErrConflict, Message: "dag '" + dag.ID + "' already exists"})
		return
	}

	now := s.clock.Now()
	dag.CreatedAt = now
	dag.UpdatedAt = now
	if err := s.store.CreateDag(r.Context(), dag); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondCreated(w, reqID, dag)
}

func (s *Server) handleGetDag(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	dag, err := s.store.GetDag(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if dag == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("dag", id))
		return
	}
	respondOK(w, reqID, dag)
}

func (s *Server) handleDeleteDag(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteDag(r.Context(), id); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondOK(w, reqID, map[string]string{"deleted": id})
}
