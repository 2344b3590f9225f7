package translate

import (
	"context"
	"errors"
)

// ErrTranslationFailed indicates a translation call failed. The failure is
// scoped to one sentence; the session continues with the next one.
var ErrTranslationFailed = errors.New("translation failed")

// Provider converts one piece of text between languages. Stateless; invoked
// once per completed sentence with no local retry.
type Provider interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
