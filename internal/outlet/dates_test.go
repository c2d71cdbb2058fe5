// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outlet

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"rss pubDate", "Mon, 02 Jun 2026 10:30:00 +0000", "2026-06-02", true},
		{"iso date", "2026-01-16", "2026-01-16", true},
		{"iso datetime with zone", "2026-01-16T15:04:05Z", "2026-01-16", true},
		{"display with time", "Jan 16, 2026 3:29pm", "2026-01-16", true},
		{"long month", "January 16, 2026", "2026-01-16", true},
		{"day first", "16 Jan 2026", "2026-01-16", true},
		{"ordinal suffix stripped", "January 3rd, 2026", "2026-01-03", true},
		{"extra whitespace", "  Jan 16,   2026 ", "2026-01-16", true},
		{"empty", "", "", false},
		{"garbage", "no date here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.text)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if ok && FormatISO(got) != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.text, FormatISO(got), tt.want)
			}
		})
	}
}

func TestFormatISOZero(t *testing.T) {
	if got := FormatISO(time.Time{}); got != "" {
		t.Errorf("FormatISO(zero) = %q, want empty", got)
	}
}
