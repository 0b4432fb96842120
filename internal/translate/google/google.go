package google

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	goption "google.golang.org/api/option"
	gtranslate "google.golang.org/api/translate/v2"

	"invoiceinsights/internal/translate"
)

// Client translates text with the Cloud Translation v2 API.
type Client struct {
	svc *gtranslate.Service
}

var _ translate.Translator = (*Client)(nil)

// New creates a translation client authenticated with an API key.
func New(ctx context.Context, apiKey string, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing translation API key")
	}
	opts = append([]goption.ClientOption{goption.WithAPIKey(apiKey)}, opts...)
	svc, err := gtranslate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create translate service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Translate returns text translated to target. English targets and blank
// text are returned unchanged without calling the API.
func (c *Client) Translate(ctx context.Context, text, target string) (string, error) {
	if !translate.NeedsTranslation(text, target) {
		return text, nil
	}
	if c.svc == nil {
		return "", errors.New("translate service not initialized")
	}

	resp, err := c.svc.Translations.List([]string{text}, target).
		Format("text").
		Source(translate.SourceLanguage).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", target, err)
	}
	if len(resp.Translations) == 0 {
		return "", fmt.Errorf("translate to %s: empty response", target)
	}

	out := html.UnescapeString(resp.Translations[0].TranslatedText)
	slog.DebugContext(ctx, "Text translated", "target", target, "length", len(out))
	return out, nil
}
