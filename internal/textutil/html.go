// Package textutil normalizes the loose text that source adapters hand over:
// HTML fragments, heterogeneous date strings and unknown languages.
package textutil

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// CleanHTML strips every tag, decodes entities and collapses whitespace.
func CleanHTML(fragment string) string {
	if fragment == "" {
		return ""
	}
	text := html.UnescapeString(strict.Sanitize(fragment))
	return CollapseSpace(text)
}

// CollapseSpace trims and reduces whitespace runs to a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
