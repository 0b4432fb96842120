package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	goption "google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"

	"invoiceinsights/internal/genai"
)

const defaultEndpoint = "https://generativelanguage.googleapis.com/"

// maxErrorBody bounds how much of an error response is kept in the error.
const maxErrorBody = 4 << 10

// Client calls the Gemini generateContent endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	model      string
}

var _ genai.Analyzer = (*Client)(nil)

type (
	part struct {
		Text string `json:"text,omitempty"`
	}

	content struct {
		Role  string  `json:"role,omitempty"`
		Parts []*part `json:"parts"`
	}

	generateContentRequest struct {
		Contents []*content `json:"contents"`
	}

	candidate struct {
		Content      *content `json:"content"`
		FinishReason string   `json:"finishReason"`
	}

	promptFeedback struct {
		BlockReason string `json:"blockReason"`
	}

	generateContentResponse struct {
		Candidates     []*candidate    `json:"candidates"`
		PromptFeedback *promptFeedback `json:"promptFeedback"`
	}
)

// New creates a Gemini client authenticated with an API key. Extra options
// (endpoint, HTTP client) are passed through to the transport.
func New(ctx context.Context, apiKey, model string, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if !strings.HasPrefix(model, "models/") {
		return nil, fmt.Errorf("invalid model name %q", model)
	}

	opts = append([]goption.ClientOption{
		goption.WithAPIKey(apiKey),
		goption.WithEndpoint(defaultEndpoint),
	}, opts...)
	hc, endpoint, err := htransport.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create generative language transport: %w", err)
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	slog.InfoContext(ctx, "Gemini client initialized", "model", model)
	return &Client{httpClient: hc, endpoint: endpoint, model: model}, nil
}

// Analyze sends the prompt followed by the invoice text and returns the
// concatenated text parts of the first candidate.
func (c *Client) Analyze(ctx context.Context, prompt, invoiceText string) (string, error) {
	if c.httpClient == nil {
		return "", errors.New("gemini client not initialized")
	}

	body, err := json.Marshal(&generateContentRequest{
		Contents: []*content{{
			Role:  "user",
			Parts: []*part{{Text: genai.BuildPrompt(prompt, invoiceText)}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateURL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return "", fmt.Errorf("generate content: status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var resp generateContentResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	text := responseText(&resp)
	if text == "" {
		reason := ""
		if resp.PromptFeedback != nil {
			reason = resp.PromptFeedback.BlockReason
		}
		slog.WarnContext(ctx, "Gemini returned no text", "model", c.model, "block_reason", reason)
		return "", genai.ErrEmptyResponse
	}

	slog.DebugContext(ctx, "Gemini analysis received", "model", c.model, "length", len(text))
	return text, nil
}

// generateURL returns {endpoint}v1beta/{model}:generateContent.
func (c *Client) generateURL() string {
	base := strings.TrimSuffix(c.endpoint, "/")
	return base + "/v1beta/" + (&url.URL{Path: c.model}).EscapedPath() + ":generateContent"
}

func responseText(resp *generateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
