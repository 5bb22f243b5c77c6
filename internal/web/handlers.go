package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"solpipe/internal"
	"solpipe/internal/pipeline"
	"solpipe/internal/report"
	"solpipe/internal/util"
)

const atRiskLimit = 8

// maxUploadBytes bounds a CRM export upload; the weekly file is well under this.
const maxUploadBytes = 32 << 20

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	records, err := s.db.LoadMasterfile()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, report.Build(records, s.now(), atRiskLimit))
}

func (s *Server) handleMasterfile(w http.ResponseWriter, r *http.Request) {
	records, err := s.db.LoadMasterfile()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	rows := make([]map[string]any, 0, len(records))
	for _, o := range records {
		rows = append(rows, map[string]any{
			internal.ColStage:               o.Stage,
			internal.ColSolutionResource:    o.SolutionResource,
			internal.ColAccountName:         o.AccountName,
			internal.ColOwnerRole:           o.OwnerRole,
			internal.ColOpportunityName:     o.Name,
			internal.ColOpportunityOwner:    o.Owner,
			internal.ColMainPrimaryService:  o.MainPrimaryService,
			internal.ColOpportunityPAR:      o.PAR,
			internal.ColStageDuration:       o.StageDuration,
			internal.ColCloseDate:           util.FormatDate(o.CloseDate),
			internal.ColNotes:               o.Notes,
			internal.ColStatus:              o.Status,
			internal.ColReceivedBySolutions: util.FormatDate(o.ReceivedBySolutions),
			internal.ColClosedBySolutions:   util.FormatDate(o.ClosedBySolutions),
			internal.ColProduct:             o.Product,
			internal.ColSolutionsNotes:      o.SolutionsNotes,
			internal.ColTasks:               o.Tasks,
			internal.ColActionItems:         o.ActionItems,
			internal.ColCommentsResults:     o.CommentsResults,
		})
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleMergeRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.db.ListMergeRuns(50)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

// handleUpload merges an uploaded CRM export. A rejected file (unreadable,
// unsupported, or missing the key column) leaves the stored masterfile
// untouched and reports 422 with the reason.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("missing upload file: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	blob, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	table, source, err := pipeline.ExtractTable(blob, header.Filename)
	if err != nil {
		s.respondError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	stats, err := s.svc.MergeTable(table, "upload:"+string(source)+":"+header.Filename)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrMissingKeyColumn) {
			status = http.StatusUnprocessableEntity
		}
		s.respondError(w, r, err, status)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

type editRequest struct {
	Name   string `json:"name"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

// handleEdit applies one inline team-field edit. Team columns are the only
// editable ones; Salesforce-sourced fields belong to the next export.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("decode edit request: %w", err), http.StatusBadRequest)
		return
	}

	if err := s.db.UpdateTeamField(req.Name, req.Column, req.Value); err != nil {
		s.respondError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	records, err := s.db.LoadMasterfile()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="masterfile.xlsx"`)
	if err := pipeline.ExportXLSX(records, w); err != nil {
		slog.Error("xlsx export failed", "error", err)
	}
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	records, err := s.db.LoadMasterfile()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="masterfile.csv"`)
	if err := pipeline.ExportCSV(records, w); err != nil {
		slog.Error("csv export failed", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
