package web

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/taskimport/internal/core"
	"github.com/JonMunkholm/taskimport/internal/logging"
	"github.com/JonMunkholm/taskimport/internal/source"
	"github.com/JonMunkholm/taskimport/internal/web/templates"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of a form ParseMultipartForm keeps in memory.
const multipartMemory = 32 << 20

// handleHealth reports liveness and import capacity. accepting_imports is
// false while every run slot is taken; a new upload then waits for one.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	active, slots := s.service.ActiveImports(), s.service.MaxImports()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":            "ok",
		"active_imports":    active,
		"max_imports":       slots,
		"accepting_imports": active < slots,
	})
}

// handleImport imports the uploaded `file` and returns the run result.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	result, err := s.importUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleImportForm is the dashboard form target. It redirects to the run.
func (s *Server) handleImportForm(w http.ResponseWriter, r *http.Request) {
	result, err := s.importUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/runs/"+result.RunID, http.StatusSeeOther)
}

func (s *Server) importUpload(w http.ResponseWriter, r *http.Request) (*core.RunResult, error) {
	if s.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxFileSize+formOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) || strings.Contains(err.Error(), "request body too large") {
			return nil, fmt.Errorf("upload: %w", core.ErrFileTooLarge)
		}
		return nil, fmt.Errorf("parse form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, core.ErrNoFileSelected
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	defer file.Close()

	if err := source.CheckFileType(header.Filename, source.CSVTypes); err != nil {
		return nil, err
	}
	if s.maxFileSize > 0 && header.Size > s.maxFileSize {
		return nil, fmt.Errorf("%s: %w", header.Filename, core.ErrFileTooLarge)
	}

	return s.service.ImportReader(r.Context(), header.Filename, file)
}

// handleListRuns returns remembered runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.Runs())
}

// handleGetRun returns one run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.Run(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}

// handleExportFailedRows downloads a run's skipped rows as CSV. The first
// two columns are the source line and the reason; the rest follow the
// original header.
func (s *Server) handleExportFailedRows(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.Run(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("failed_rows_%s.csv", run.StartedAt.Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	cw := csv.NewWriter(w)
	cw.Write(append([]string{"_line", "_error"}, run.Header...))
	for _, row := range run.Failures {
		cw.Write(append([]string{strconv.Itoa(row.Line), row.Reason}, row.Data...))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logging.FromContext(r.Context()).Error("write failed rows", "run_id", run.RunID, "error", err)
	}
}

// handleDashboard renders the upload form and run history.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	templ.Handler(templates.DashboardPage(s.service.Runs())).ServeHTTP(w, r)
}

// handleRunDetail renders one run with its skipped rows.
func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.Run(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	templ.Handler(templates.RunPage(run)).ServeHTTP(w, r)
}
