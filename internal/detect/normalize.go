// Package detect extracts monetary amounts from untrusted on-screen and notification text.
package detect

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// strictTimeRe matches fragments that are nothing but a clock time (H:MM or H:MM:SS).
	strictTimeRe = regexp.MustCompile(`^\d{1,2}:\d{2}(?::\d{2})?$`)

	// quantityRe matches item counts such as "1件", "2 个" or "[3笔]".
	quantityRe = regexp.MustCompile(`\[?\d+\s*[件个笔条单]\s*\]?`)
)

// Normalize folds full-width digits and punctuation to their ASCII forms.
func Normalize(text string) string {
	return norm.NFKC.String(text)
}

// IsStrictTime reports whether text is only a clock time, which is never an amount.
func IsStrictTime(text string) bool {
	return strictTimeRe.MatchString(strings.TrimSpace(text))
}

// StripQuantities removes quantity-unit tokens so item counts are not read as money.
func StripQuantities(text string) string {
	return quantityRe.ReplaceAllString(text, "")
}

// prepare turns a raw fragment into scannable text. It returns false for fragments
// that must not be scanned at all.
func prepare(text string) (string, bool) {
	text = Normalize(text)
	if strings.TrimSpace(text) == "" || IsStrictTime(text) {
		return "", false
	}
	return StripQuantities(text), true
}
