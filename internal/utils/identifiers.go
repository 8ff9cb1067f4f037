package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail trims and lower-cases an email so lookups and the unique index agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername trims a login name and applies NFKC so visually identical
// names collapse to one stored form.
func NormalizeUsername(username string) string {
	return norm.NFKC.String(strings.TrimSpace(username))
}
