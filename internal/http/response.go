package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"invoiceinsights/internal/core"
	"invoiceinsights/internal/pdftext"
	"invoiceinsights/internal/services"
	"invoiceinsights/internal/storage"
)

const insufficientTrendMessage = "Not enough data to determine trends."

type errorResponse struct {
	Error string `json:"error"`
}

type monthlyTotalResponse struct {
	Month     string `json:"month"`
	Amount    string `json:"amount"`
	Formatted string `json:"formatted"`
}

type trendRecordResponse struct {
	Month         string `json:"month"`
	PreviousMonth string `json:"previous_month"`
	Delta         string `json:"delta"`
	PercentDelta  string `json:"percent_delta"`
	Direction     string `json:"direction"`
}

type trendResponse struct {
	Records   []trendRecordResponse `json:"records"`
	Sentences []string              `json:"sentences"`
	Message   string                `json:"message,omitempty"`
}

type reportResponse struct {
	ID                 int64                  `json:"id,omitempty"`
	FileName           string                 `json:"file_name,omitempty"`
	Prompt             string                 `json:"prompt"`
	Language           string                 `json:"language"`
	Analysis           string                 `json:"analysis"`
	TranslatedAnalysis string                 `json:"translated_analysis,omitempty"`
	MonthlyTotals      []monthlyTotalResponse `json:"monthly_totals"`
	Total              string                 `json:"total"`
	ShowMonthly        bool                   `json:"show_monthly"`
	Trend              *trendResponse         `json:"trend,omitempty"`
	CreatedAt          string                 `json:"created_at"`
}

type languageResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// newReportResponse renders a report. The trend block is present only when
// the prompt asked for trends.
func newReportResponse(rep *core.Report, currency string) reportResponse {
	resp := reportResponse{
		ID:                 rep.ID,
		FileName:           rep.FileName,
		Prompt:             rep.Prompt,
		Language:           rep.Language,
		Analysis:           rep.Analysis,
		TranslatedAnalysis: rep.TranslatedAnalysis,
		MonthlyTotals:      make([]monthlyTotalResponse, 0, len(rep.Monthly)),
		Total:              core.FormatAmount(core.SumMonthly(rep.Monthly), currency),
		ShowMonthly:        rep.HasMonthly(),
		CreatedAt:          rep.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, mt := range rep.Monthly {
		resp.MonthlyTotals = append(resp.MonthlyTotals, monthlyTotalResponse{
			Month:     mt.Month.String(),
			Amount:    mt.Amount.StringFixed(2),
			Formatted: core.FormatAmount(mt.Amount, currency),
		})
	}

	if !resp.ShowMonthly || !rep.ShowTrend {
		return resp
	}
	tr := &trendResponse{
		Records:   make([]trendRecordResponse, 0, len(rep.Trends)),
		Sentences: rep.TrendSentences,
	}
	if tr.Sentences == nil {
		tr.Sentences = []string{}
	}
	for _, rec := range rep.Trends {
		tr.Records = append(tr.Records, trendRecordResponse{
			Month:         rec.Month.String(),
			PreviousMonth: rec.PreviousMonth.String(),
			Delta:         rec.Delta.StringFixed(2),
			PercentDelta:  rec.PercentDelta.StringFixed(2),
			Direction:     string(rec.Direction),
		})
	}
	if rep.InsufficientData {
		tr.Message = insufficientTrendMessage
	}
	resp.Trend = tr
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusForError maps service and parsing errors to HTTP status codes.
func statusForError(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrEmptyPrompt),
		errors.Is(err, services.ErrUnsupportedLanguage),
		errors.Is(err, services.ErrNoInvoice),
		errors.Is(err, pdftext.ErrNotPDF),
		errors.Is(err, errBadForm),
		errors.Is(err, errBadJSON),
		errors.Is(err, errBadReportID):
		return http.StatusBadRequest
	case errors.Is(err, pdftext.ErrNoText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, services.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage hides internal details of server-side failures.
func errorMessage(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return "internal server error"
	case http.StatusBadGateway:
		return "analysis service unavailable"
	case http.StatusGatewayTimeout:
		return "analysis timed out"
	case http.StatusRequestEntityTooLarge:
		return "upload too large"
	case http.StatusNotFound:
		return "report not found"
	default:
		return err.Error()
	}
}
