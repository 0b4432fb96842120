package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"invoiceinsights/internal/log"
)

// handleCreateAnalysis runs the full analysis pipeline over an uploaded
// invoice and returns the stored report.
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := parseAnalysisRequest(w, r, s.maxUpload)
	if err != nil {
		s.fail(ctx, w, err, log.OpParse)
		return
	}

	actx, cancel := context.WithTimeout(ctx, s.analysisTimeout)
	defer cancel()
	rep, err := s.svc.Analyze(actx, req)
	if err != nil {
		s.fail(ctx, w, err, log.OpAnalyze)
		return
	}
	s.reports.Set(rep.ID, rep)

	log.NewStructuredLogger(log.FromContext(ctx)).LogReportCreated(ctx,
		rep.ID, rep.FileName, rep.Language, len(rep.Monthly), len(rep.Trends))

	w.Header().Set("Location", fmt.Sprintf("/analyses/%d", rep.ID))
	writeJSON(w, http.StatusCreated, newReportResponse(rep, s.currency))
}

// handleExtract aggregates monthly totals from supplied text without calling
// any external service.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := parseExtractRequest(w, r)
	if err != nil {
		s.fail(ctx, w, err, log.OpParse)
		return
	}
	rep, err := s.svc.ExtractText(req.Text, req.Prompt)
	if err != nil {
		s.fail(ctx, w, err, log.OpExtract)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(rep, s.currency))
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := parseReportID(r)
	if err != nil {
		s.fail(ctx, w, err, log.OpParse)
		return
	}

	if rep, ok := s.reports.Get(id); ok {
		writeJSON(w, http.StatusOK, newReportResponse(rep, s.currency))
		return
	}

	rep, err := s.svc.GetReport(ctx, id)
	if err != nil {
		s.fail(ctx, w, err, log.OpRead)
		return
	}
	s.reports.Set(id, rep)
	writeJSON(w, http.StatusOK, newReportResponse(rep, s.currency))
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	langs := s.svc.Languages()
	out := make([]languageResponse, 0, len(langs))
	for code, name := range langs {
		out = append(out, languageResponse{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"cached_reports": s.reports.Len(),
		"rate_limited":   s.metrics.rateLimited(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// fail logs err and writes the matching JSON error response.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, err error, op string) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx,
			"Request failed", err, log.ComponentHTTP, op, log.NewFields().WithHTTPResponse(status, 0, false))
	} else {
		log.FromContext(ctx).InfoContext(ctx, "Request rejected",
			log.FieldStatusCode, status, log.FieldOperation, op, log.FieldError, err)
	}
	writeError(w, status, errorMessage(status, err))
}
