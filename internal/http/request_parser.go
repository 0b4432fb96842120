package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"invoiceinsights/internal/services"
)

const (
	invoiceField  = "invoice"
	promptField   = "prompt"
	languageField = "language"
	textField     = "text"

	// maxExtractBody bounds the JSON body of POST /extract.
	maxExtractBody = 1 << 20
	// multipartMemory is kept in memory before parts spill to disk.
	multipartMemory = 1 << 20
)

var (
	errBadForm     = errors.New("invalid form data")
	errBadJSON     = errors.New("invalid JSON body")
	errBadReportID = errors.New("invalid report id")
)

// extractRequest is the JSON body of POST /extract.
type extractRequest struct {
	Text   string `json:"text"`
	Prompt string `json:"prompt"`
}

// parseAnalysisRequest reads an analysis upload. Multipart bodies may carry
// the invoice PDF; url-encoded forms can only supply invoice text.
func parseAnalysisRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (services.AnalysisRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	var req services.AnalysisRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return req, formError(err)
		}
		pdf, name, err := readInvoiceFile(r)
		if err != nil {
			return req, err
		}
		req.PDF = pdf
		req.FileName = name
	} else if err := r.ParseForm(); err != nil {
		return req, formError(err)
	}

	req.Prompt = sanitizeInput(r.FormValue(promptField))
	req.Language = sanitizeInput(r.FormValue(languageField))
	req.Text = sanitizeInput(r.FormValue(textField))
	return req, nil
}

// readInvoiceFile returns the uploaded invoice, or nil when none was sent.
func readInvoiceFile(r *http.Request) ([]byte, string, error) {
	file, header, err := r.FormFile(invoiceField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", formError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read invoice upload: %w", err)
	}
	return data, sanitizeFileName(header.Filename), nil
}

// formError keeps body-size errors recognisable and maps the rest to errBadForm.
func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return fmt.Errorf("%w: %v", errBadForm, err)
}

func parseExtractRequest(w http.ResponseWriter, r *http.Request) (extractRequest, error) {
	var req extractRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExtractBody))
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return req, err
		}
		return req, fmt.Errorf("%w: %v", errBadJSON, err)
	}
	req.Prompt = sanitizeInput(req.Prompt)
	return req, nil
}

// parseReportID reads the {id} path value as a positive integer.
func parseReportID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errBadReportID, raw)
	}
	return id, nil
}
