package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"scribeline/internal/models"
)

// Transcript modes of the auto-transcript service.
const (
	ModeNative   = "native"
	ModeGenerate = "generate"
	ModeAuto     = "auto"
)

// AutoTranscriptClient talks to the auto-transcript service: native
// caption fetch, AI generation, or auto (native first, generate as
// fallback). Generation is asynchronous behind a polled job.
type AutoTranscriptClient struct {
	baseURL         string
	apiKey          string
	httpClient      *http.Client
	pollInterval    time.Duration
	maxPollAttempts int
}

func NewAutoTranscriptClient(baseURL, apiKey string, pollInterval time.Duration, maxPollAttempts int) *AutoTranscriptClient {
	return &AutoTranscriptClient{
		baseURL:         baseURL,
		apiKey:          apiKey,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		pollInterval:    pollInterval,
		maxPollAttempts: maxPollAttempts,
	}
}

type transcriptResponse struct {
	JobID          string          `json:"jobId"`
	Status         string          `json:"status"`
	Content        json.RawMessage `json:"content"`
	Lang           string          `json:"lang"`
	AvailableLangs []string        `json:"availableLangs"`
}

type transcriptChunk struct {
	Text     string  `json:"text"`
	Offset   float64 `json:"offset"`
	Duration float64 `json:"duration"`
	Lang     string  `json:"lang"`
}

// Transcribe fetches a transcript for mediaURL. In native mode a missing
// caption track yields (nil, nil). IsGenerated is true for generate mode
// and for auto requests that took the async job path.
func (c *AutoTranscriptClient) Transcribe(ctx context.Context, mediaURL, mode, lang string) (*TranscriptResult, error) {
	q := url.Values{}
	q.Set("url", mediaURL)
	q.Set("mode", mode)
	if lang != "" {
		q.Set("lang", lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/transcript?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auto-transcript request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read auto-transcript response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var tr transcriptResponse
		if err := json.Unmarshal(body, &tr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal auto-transcript response: %w", err)
		}
		if emptyContent(tr.Content) {
			if mode == ModeNative {
				return nil, nil
			}
			return nil, fmt.Errorf("auto-transcript returned empty content")
		}
		result, err := resultFromResponse(&tr, body)
		if err != nil {
			return nil, err
		}
		result.IsGenerated = mode == ModeGenerate
		return result, nil

	case http.StatusAccepted:
		var tr transcriptResponse
		if err := json.Unmarshal(body, &tr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal auto-transcript job response: %w", err)
		}
		if tr.JobID == "" {
			return nil, fmt.Errorf("auto-transcript returned 202 without a job id")
		}
		result, err := c.pollJob(ctx, tr.JobID)
		if err != nil {
			return nil, err
		}
		// The async path always runs AI transcription, regardless of the
		// requested mode.
		result.IsGenerated = true
		return result, nil

	case http.StatusNotFound:
		if mode == ModeNative {
			return nil, nil
		}
		return nil, fmt.Errorf("auto-transcript returned 404: %s", string(body))

	default:
		return nil, fmt.Errorf("auto-transcript returned status %d: %s", resp.StatusCode, string(body))
	}
}

// pollJob polls the job endpoint until content appears. The attempt cap
// bounds total wait to roughly ten minutes at the default interval.
func (c *AutoTranscriptClient) pollJob(ctx context.Context, jobID string) (*TranscriptResult, error) {
	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/transcript/"+jobID, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("auto-transcript poll failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read auto-transcript poll response: %w", err)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			return nil, fmt.Errorf("auto-transcript poll returned status %d: %s", resp.StatusCode, string(body))
		}

		var tr transcriptResponse
		if err := json.Unmarshal(body, &tr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal auto-transcript poll response: %w", err)
		}
		if !emptyContent(tr.Content) {
			return resultFromResponse(&tr, body)
		}
		switch tr.Status {
		case "", "active", "queued":
			continue
		default:
			return nil, fmt.Errorf("auto-transcript job %s ended with status %q", jobID, tr.Status)
		}
	}
	return nil, fmt.Errorf("auto-transcript job %s timed out after %d polls", jobID, c.maxPollAttempts)
}

func emptyContent(content json.RawMessage) bool {
	if len(content) == 0 {
		return true
	}
	s := string(content)
	return s == "null" || s == `""` || s == "[]"
}

// resultFromResponse converts the wire content, either a chunk array or
// a plain string, into segments.
func resultFromResponse(tr *transcriptResponse, raw []byte) (*TranscriptResult, error) {
	result := &TranscriptResult{Language: tr.Lang, Raw: raw}

	var chunks []transcriptChunk
	if err := json.Unmarshal(tr.Content, &chunks); err == nil {
		for _, chunk := range chunks {
			start := chunk.Offset / 1000
			end := (chunk.Offset + chunk.Duration) / 1000
			result.Segments = append(result.Segments, models.Segment{
				Start: start,
				End:   end,
				Text:  chunk.Text,
			})
			if end > result.Duration {
				result.Duration = end
			}
		}
		return result, nil
	}

	var text string
	if err := json.Unmarshal(tr.Content, &text); err != nil {
		return nil, fmt.Errorf("auto-transcript content is neither chunks nor text: %w", err)
	}
	result.Segments = []models.Segment{{Start: 0, End: 0, Text: text}}
	return result, nil
}
