package textutil

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Layouts dateparse does not recognise on its own.
var extraLayouts = []string{
	"20060102T150405Z",                // GDELT seendate
	"01/02/2006, 03:04 PM, -0700 MST", // SerpAPI google_news
	"20060102",
}

// ParseDate interprets a published date in any of the formats sources use.
// It returns nil when the value cannot be understood.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range extraLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
