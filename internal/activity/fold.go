package activity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold normalises a name for case-insensitive substring matching: NFC
// composition followed by full Unicode case folding, so "STRASSE" and
// "Straße" compare equal.
func Fold(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	// cases.Caser is stateful; one per call.
	return cases.Fold().String(s)
}
