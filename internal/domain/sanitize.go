package domain

import (
	"regexp"
	"strings"
)

// MaxQueryLength is the longest search query sent to a catalog or provider
const MaxQueryLength = 120

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeQuery strips markup from free text, collapses whitespace and truncates it to MaxQueryLength runes
func SanitizeQuery(value string) string {
	value = tagPattern.ReplaceAllString(value, "")
	value = strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " "))

	runes := []rune(value)
	if len(runes) > MaxQueryLength {
		return strings.TrimSpace(string(runes[:MaxQueryLength]))
	}
	return value
}

// IsWebURL reports whether the url uses the http or https scheme
func IsWebURL(url string) bool {
	lower := strings.ToLower(strings.TrimSpace(url))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// SanitizeURL returns the url upgraded to https, or an empty string if it is not a web url
func SanitizeURL(url string) string {
	trimmed := strings.TrimSpace(url)
	if !IsWebURL(trimmed) {
		return ""
	}
	if strings.EqualFold(trimmed[:7], "http://") {
		return "https://" + trimmed[7:]
	}
	return trimmed
}

// StripTags removes markup from display text such as a synopsis, keeping line breaks
func StripTags(value string) string {
	value = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n").Replace(value)
	return strings.TrimSpace(tagPattern.ReplaceAllString(value, ""))
}
