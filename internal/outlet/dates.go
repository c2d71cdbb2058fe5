// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outlet

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts lists the display formats outlets use, most specific first.
var dateLayouts = []string{
	"Jan 2, 2006 3:04PM",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 3:04pm",
	"Jan 2, 2006 3:04 pm",
	"January 2, 2006 3:04PM",
	"January 2, 2006 3:04 PM",
	"January 2, 2006 3:04pm",
	"January 2, 2006 3:04 pm",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"January 2 2006",
	"Jan 2 2006",
}

// rssLayouts covers RFC 822 style dates found in feed pubDate elements.
var rssLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
}

var ordinalSuffix = regexp.MustCompile(`(?i)(\d{1,2})(st|nd|rd|th)`)

// ParseDate parses a human or machine date string from a listing, feed, or
// article page. It tries RSS formats first, then the display layouts, then
// ISO-8601. The boolean reports success; date parse failures are never
// fatal to the caller.
func ParseDate(text string) (time.Time, bool) {
	cleaned := CleanText(text)
	if cleaned == "" {
		return time.Time{}, false
	}
	cleaned = ordinalSuffix.ReplaceAllString(cleaned, "$1")

	for _, layout := range rssLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, true
		}
	}

	iso := strings.Replace(cleaned, "Z", "+00:00", 1)
	for _, layout := range []string{
		"2006-01-02T15:04:05-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatISO renders a date the way the corpus stores published_at.
func FormatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
