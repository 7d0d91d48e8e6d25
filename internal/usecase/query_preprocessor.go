package usecase

import (
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// strippedPunctuation is deleted from names before matching. Characters are removed
// without inserting a space, so "lait-entier" becomes "laitentier".
const strippedPunctuation = ",.;:!?()[]{}-_=+*/\\|@#"

// QueryPreprocessor normalizes product and ingredient names before matching
type QueryPreprocessor struct {
	foldAccents        bool
	enableDebugLogging bool
}

// NewQueryPreprocessor creates a new preprocessor. With foldAccents set, "crème"
// and "creme" normalize to the same text.
func NewQueryPreprocessor(foldAccents, enableDebugLogging bool) *QueryPreprocessor {
	return &QueryPreprocessor{
		foldAccents:        foldAccents,
		enableDebugLogging: enableDebugLogging,
	}
}

// PreprocessName lowercases a name, deletes the punctuation set and collapses whitespace
func (p *QueryPreprocessor) PreprocessName(name string) string {
	if name == "" {
		return ""
	}

	// a Caser keeps state, so each call gets its own
	cleaned := cases.Lower(language.French).String(name)
	if p.foldAccents {
		cleaned = removeDiacritics(cleaned)
	}
	cleaned = strings.Map(func(r rune) rune {
		if strings.ContainsRune(strippedPunctuation, r) {
			return -1
		}
		return r
	}, cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if p.enableDebugLogging {
		log.Debug().Str("input", name).Str("output", cleaned).Msg("preprocessed name")
	}

	return cleaned
}

// removeDiacritics strips combining marks after NFD decomposition
func removeDiacritics(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	if normalized, _, err := transform.String(t, s); err == nil {
		return normalized
	}
	return s
}
