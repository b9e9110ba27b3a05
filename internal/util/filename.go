// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
)

var (
	// Matches spaces, dashes, and slashes (for replacement with underscores).
	wordSeparatorRe = regexp.MustCompile(`[\s\-/]+`)
	// Matches characters not allowed in a generated filename.
	disallowedRe = regexp.MustCompile(`[^a-z0-9_]`)
	// Matches multiple consecutive underscores.
	multipleUnderscoreRe = regexp.MustCompile(`_+`)
)

// maxFilenameLen caps generated base names so the full path stays well
// under filesystem limits even after a collision suffix is appended.
const maxFilenameLen = 120

// SanitizeFilename converts model-generated text to a filesystem-safe
// base name (no extension). The caption service returns free-form text;
// the result must be safe to use verbatim inside the data directory.
//
// Normalization rules:
//  1. Trim whitespace and lowercase
//  2. Replace spaces, dashes, and slashes with underscores
//  3. Remove everything outside [a-z0-9_]
//  4. Collapse consecutive underscores
//  5. Trim leading/trailing underscores
//  6. Truncate to a sane length
//
// Examples:
//
//	"A cat wearing sunglasses"  → "a_cat_wearing_sunglasses"
//	"dog--on/skateboard!"       → "dog_on_skateboard"
//	"  Multi   Word  "          → "multi_word"
func SanitizeFilename(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))

	s = wordSeparatorRe.ReplaceAllString(s, "_")
	s = disallowedRe.ReplaceAllString(s, "")
	s = multipleUnderscoreRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	if len(s) > maxFilenameLen {
		s = strings.Trim(s[:maxFilenameLen], "_")
	}

	return s
}
