package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"invoiceinsights/internal/pdftext"
	"invoiceinsights/internal/services"
	"invoiceinsights/internal/storage"
)

func TestParseAnalysisRequestURLEncoded(t *testing.T) {
	form := url.Values{"prompt": {" monthly\x00 totals "}, "language": {"FR"}, "text": {"01/15/2024 $10"}}
	r := httptest.NewRequest(http.MethodPost, "/analyses", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := parseAnalysisRequest(httptest.NewRecorder(), r, 1<<20)
	if err != nil {
		t.Fatalf("parseAnalysisRequest: %v", err)
	}
	if req.Prompt != "monthly totals" || req.Language != "FR" || req.Text != "01/15/2024 $10" || req.PDF != nil {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestParseReportID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{" 42 ", 42, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"99999999999999999999", 0, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.SetPathValue("id", tt.raw)
		got, err := parseReportID(r)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseReportID(%q) = %d, %v", tt.raw, got, err)
		}
		if err != nil && !errors.Is(err, errBadReportID) {
			t.Errorf("parseReportID(%q) error %v is not errBadReportID", tt.raw, err)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"invoice.pdf":            "invoice.pdf",
		"../../etc/passwd":       "passwd",
		`C:\Users\me\bill.pdf`:   "bill.pdf",
		"  spaced name.pdf  ":    "spaced name.pdf",
		"":                       "",
		"tab\x01name.pdf":        "tabname.pdf",
		strings.Repeat("a", 300): strings.Repeat("a", 255),
	}
	for in, want := range tests {
		if got := sanitizeFileName(in); got != want {
			t.Errorf("sanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrEmptyPrompt, http.StatusBadRequest},
		{fmt.Errorf("x: %w", services.ErrUnsupportedLanguage), http.StatusBadRequest},
		{services.ErrNoInvoice, http.StatusBadRequest},
		{fmt.Errorf("extract pdf text: %w", pdftext.ErrNotPDF), http.StatusBadRequest},
		{fmt.Errorf("extract pdf text: %w", pdftext.ErrNoText), http.StatusUnprocessableEntity},
		{fmt.Errorf("get report 3: %w", storage.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: boom", services.ErrUpstream), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
