package provider

import (
	"encoding/json"

	"scribeline/internal/models"
)

// TranscriptResult is the uniform output of every provider adapter.
type TranscriptResult struct {
	Segments []models.Segment
	// Duration of the source media in seconds.
	Duration float64
	Language string
	// IsGenerated marks AI-produced transcripts, which are billable;
	// native captions are free.
	IsGenerated bool
	// Raw is the provider payload as received, persisted alongside the
	// transcript for audit.
	Raw json.RawMessage
}
