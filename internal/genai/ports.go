// Package genai defines the port to the generative model that writes the
// free-form expense analysis, plus a local echo implementation.
package genai

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model did not return any response")

// Analyzer produces a natural-language analysis of invoice text driven by a
// user prompt.
type Analyzer interface {
	Analyze(ctx context.Context, prompt, invoiceText string) (string, error)
}

// BuildPrompt joins the user's prompt and the invoice text into the single
// message sent to the model.
func BuildPrompt(prompt, invoiceText string) string {
	return strings.TrimSpace(prompt) + "\n\nInvoice Data:\n" + invoiceText
}

// Echo returns the invoice text unchanged. It lets the pipeline run without
// a model, extracting directly from the document text.
type Echo struct{}

var _ Analyzer = Echo{}

func (Echo) Analyze(_ context.Context, _ string, invoiceText string) (string, error) {
	text := strings.TrimSpace(invoiceText)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
