package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-dispatch/internal/audit"
	"github.com/nerrad567/gray-logic-dispatch/internal/program"
)

const defaultExecutionLimit = 20

type programSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleListPrograms(w http.ResponseWriter, _ *http.Request) {
	lib := s.engine.Library()
	names := lib.Names()

	programs := make([]programSummary, 0, len(names))
	for _, name := range names {
		prog, err := lib.Get(name)
		if err != nil {
			continue
		}
		programs = append(programs, programSummary{Name: name, Description: prog.Description})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"programs": programs,
		"count":    len(programs),
	})
}

// handleRunProgram runs a program to completion and returns its
// execution record. A program that runs but fails is still 200: the
// failure is part of the record.
func (s *Server) handleRunProgram(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	trigger := "api"
	if claims := claimsFromContext(r.Context()); claims != nil {
		trigger = "api:" + claims.Subject
	}

	// A dropped connection must not leave a program half-run.
	exec, err := s.engine.Run(context.WithoutCancel(r.Context()), name, trigger)
	switch {
	case errors.Is(err, program.ErrProgramNotFound):
		writeNotFound(w, err.Error())
		return
	case errors.Is(err, program.ErrUnknownAlias):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	case exec == nil && err != nil:
		writeInternalError(w, err.Error())
		return
	}

	s.recordAudit(r, audit.ActionRun, audit.EntityProgram, name, string(exec.Status), map[string]any{
		"execution_id": exec.ID,
	})
	writeJSON(w, http.StatusOK, exec)
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := s.engine.Library().Get(name); err != nil {
		writeNotFound(w, err.Error())
		return
	}

	limit := defaultExecutionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	executions := []program.Execution{}
	if s.executions != nil {
		list, err := s.executions.ListExecutions(r.Context(), name, limit)
		if err != nil {
			s.logger.Error("listing executions", "program", name, "error", err)
			writeInternalError(w, "failed to list executions")
			return
		}
		executions = list
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"executions": executions,
		"count":      len(executions),
	})
}
