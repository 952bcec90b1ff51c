package util

import (
	"regexp"
	"strings"
)

var (
	aliasRegex   = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	dashRuns     = regexp.MustCompile(`-{2,}`)
	uuidRegex    = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// NormalizeAlias applies the same case-folding used when aliases are
// registered, so lookups match regardless of how the scan URL was typed.
func NormalizeAlias(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}

// SlugifyAlias turns free text into an alias-safe slug, mirroring how the
// portal derives aliases from code names.
func SlugifyAlias(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// IsValidAlias reports whether s is an acceptable registered alias:
// lowercase alphanumerics and inner dashes only.
func IsValidAlias(s string) bool {
	return aliasRegex.MatchString(s)
}

func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	return uuidRegex.MatchString(s)
}
