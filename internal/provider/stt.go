package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scribeline/internal/models"
)

// wordGapSeconds is the silence that forces a new segment when walking
// the raw word stream.
const wordGapSeconds = 1.0

// SpeechClient talks to the synchronous speech-to-text service
// (Deepgram-style listen API).
type SpeechClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewSpeechClient(baseURL, apiKey, model string) *SpeechClient {
	return &SpeechClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

// ListenOptions controls a transcription request.
type ListenOptions struct {
	Language       string
	DetectLanguage bool
	Diarize        bool
	// CallbackURL switches the service to async webhook mode.
	CallbackURL string
}

// ListenResult mirrors the listen API response. Exported because the
// webhook handler parses the same shape from the callback body.
type ListenResult struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
				Words      []Word `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
		Utterances []Utterance `json:"utterances"`
	} `json:"results"`
}

type Word struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Speaker        *int    `json:"speaker"`
}

type Utterance struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Transcript string  `json:"transcript"`
	Speaker    *int    `json:"speaker"`
}

// Transcribe runs a synchronous transcription of the media at mediaURL.
func (c *SpeechClient) Transcribe(ctx context.Context, mediaURL string, opts ListenOptions) (*TranscriptResult, error) {
	q := url.Values{}
	q.Set("model", c.model)
	q.Set("punctuate", "true")
	q.Set("utterances", "true")
	q.Set("diarize", strconv.FormatBool(opts.Diarize))
	q.Set("detect_language", strconv.FormatBool(opts.DetectLanguage))
	if opts.Language != "" {
		q.Set("language", opts.Language)
	}
	if opts.CallbackURL != "" {
		q.Set("callback", opts.CallbackURL)
	}

	payload, err := json.Marshal(map[string]string{"url": mediaURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/listen?"+q.Encode(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stt request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read stt response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stt returned status %d: %s", resp.StatusCode, string(body))
	}

	return ResultFromListen(body)
}

// ResultFromListen parses a listen response body into a TranscriptResult.
// Also used by the webhook handler on async callbacks.
func ResultFromListen(body []byte) (*TranscriptResult, error) {
	var lr ListenResult
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stt response: %w", err)
	}
	return &TranscriptResult{
		Segments:    ExtractSegments(&lr),
		Duration:    lr.Metadata.Duration,
		IsGenerated: true,
		Raw:         body,
	}, nil
}

// ExtractSegments prefers provider utterances (already grouped by
// semantics and speaker); otherwise it walks the word stream and cuts a
// segment on speaker change or a silence gap.
func ExtractSegments(lr *ListenResult) []models.Segment {
	if len(lr.Results.Utterances) > 0 {
		segments := make([]models.Segment, 0, len(lr.Results.Utterances))
		for _, u := range lr.Results.Utterances {
			segments = append(segments, models.Segment{
				Start:   u.Start,
				End:     u.End,
				Text:    u.Transcript,
				Speaker: speakerLabel(u.Speaker),
			})
		}
		return segments
	}

	if len(lr.Results.Channels) == 0 || len(lr.Results.Channels[0].Alternatives) == 0 {
		return nil
	}
	words := lr.Results.Channels[0].Alternatives[0].Words
	if len(words) == 0 {
		return nil
	}

	var segments []models.Segment
	var texts []string
	current := models.Segment{Start: words[0].Start, Speaker: speakerLabel(words[0].Speaker)}
	prev := words[0]

	flush := func(end float64) {
		current.End = end
		current.Text = strings.Join(texts, " ")
		segments = append(segments, current)
		texts = nil
	}

	for i, w := range words {
		if i > 0 {
			speakerChanged := speakerKey(w.Speaker) != speakerKey(prev.Speaker)
			if speakerChanged || w.Start-prev.End > wordGapSeconds {
				flush(prev.End)
				current = models.Segment{Start: w.Start, Speaker: speakerLabel(w.Speaker)}
			}
		}
		texts = append(texts, wordText(w))
		prev = w
	}
	flush(prev.End)
	return segments
}

func wordText(w Word) string {
	if w.PunctuatedWord != "" {
		return w.PunctuatedWord
	}
	return w.Word
}

func speakerLabel(speaker *int) *string {
	if speaker == nil {
		return nil
	}
	label := fmt.Sprintf("Speaker %d", *speaker)
	return &label
}

func speakerKey(speaker *int) int {
	if speaker == nil {
		return -1
	}
	return *speaker
}
