package textutil

import (
	"strings"
	"unicode"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters and control runes are removed. Trailing dots are dropped so the
// name survives on Windows shares.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, fileNameReplacer.Replace(name))
	return strings.TrimRight(strings.TrimSpace(name), ". ")
}

// ExportBaseName picks the export file stem for a report: the sanitized
// title, else the sanitized part number, else fallback.
func ExportBaseName(title, partNumber, fallback string) string {
	for _, candidate := range []string{title, partNumber} {
		if clean := SanitizeFileName(candidate); clean != "" {
			return clean
		}
	}
	return fallback
}
