// Package translate defines the port used to translate the generated
// analysis into the user's language.
package translate

import (
	"context"
	"strings"
)

// SourceLanguage is the language the analysis is generated in.
const SourceLanguage = "en"

// Translator translates text into the target language code.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Noop returns the text unchanged. It is used when no translation service is
// configured.
type Noop struct{}

var _ Translator = Noop{}

func (Noop) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}

// NeedsTranslation reports whether text must be sent to a translator for the
// given target language.
func NeedsTranslation(text, target string) bool {
	target = strings.ToLower(strings.TrimSpace(target))
	return strings.TrimSpace(text) != "" && target != "" && target != SourceLanguage
}
