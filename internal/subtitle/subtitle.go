package subtitle

import (
	"fmt"
	"math"
	"strings"

	"scribeline/internal/models"
)

// FormatSRT renders segments as an SRT document: 1-indexed blocks with
// comma-separated milliseconds.
func FormatSRT(segments []models.Segment) string {
	var sb strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatTimestamp(s.Start, ","), formatTimestamp(s.End, ","))
		fmt.Fprintf(&sb, "%s\n", s.Text)
		if i < len(segments)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// FormatVTT renders segments as a WebVTT document.
func FormatVTT(segments []models.Segment) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for i, s := range segments {
		fmt.Fprintf(&sb, "%s --> %s\n", formatTimestamp(s.Start, "."), formatTimestamp(s.End, "."))
		fmt.Fprintf(&sb, "%s\n", s.Text)
		if i < len(segments)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// formatTimestamp renders seconds as HH:MM:SS<sep>mmm. Milliseconds are
// floored; the epsilon keeps values like 62.001 from landing one
// millisecond short of their decimal representation.
func formatTimestamp(seconds float64, sep string) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int(math.Floor(seconds*1000 + 1e-6))
	millis := totalMillis % 1000
	whole := totalMillis / 1000
	hours := whole / 3600
	minutes := (whole % 3600) / 60
	secs := whole % 60
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", hours, minutes, secs, sep, millis)
}
