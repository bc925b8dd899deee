package normalize

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"scribeline/internal/models"
)

const mergeSystemPrompt = `You merge fragmentary subtitle chunks into complete sentences.
Rules:
- Merge fragments into complete sentences by semantics and punctuation.
- Preserve time ordering; a merged segment's start is the first fragment's start and its end is the last fragment's end.
- Never merge across speaker boundaries.
- Respond with JSON only: {"segments":[{"start":number,"end":number,"text":string,"speaker":string|null}]}`

const translateSystemPrompt = `You translate subtitle segments into the target language.
Rules:
- Preserve timestamps and speakers exactly; only rewrite "text".
- If the source text is already in the target language, return it unchanged.
- Respond with JSON only: {"segments":[{"start":number,"end":number,"text":string,"speaker":string|null}]}`

const (
	mergeTemperature     = 0.1
	translateTemperature = 0.3
)

// LLM is the normalizer's view of the chat-completion service.
type LLM interface {
	MergeSegments(ctx context.Context, segments []models.Segment) ([]models.Segment, error)
	TranslateSegments(ctx context.Context, segments []models.Segment, targetLang string) ([]models.Segment, error)
}

// LLMClient implements LLM over the OpenAI chat-completion API with
// JSON-constrained output.
type LLMClient struct {
	client *openai.Client
	model  string
}

func NewLLMClient(apiKey, baseURL, model string) *LLMClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &LLMClient{client: openai.NewClientWithConfig(cfg), model: model}
}

// llmSegment is the compact wire form sent to the model.
type llmSegment struct {
	I  int     `json:"i"`
	S  float64 `json:"s"`
	E  float64 `json:"e"`
	T  string  `json:"t"`
	Sp string  `json:"sp,omitempty"`
}

type llmResponse struct {
	Segments []models.Segment `json:"segments"`
}

func (c *LLMClient) MergeSegments(ctx context.Context, segments []models.Segment) ([]models.Segment, error) {
	return c.complete(ctx, mergeSystemPrompt, "", segments, mergeTemperature)
}

func (c *LLMClient) TranslateSegments(ctx context.Context, segments []models.Segment, targetLang string) ([]models.Segment, error) {
	instruction := fmt.Sprintf("Target language: %s\n", targetLang)
	return c.complete(ctx, translateSystemPrompt, instruction, segments, translateTemperature)
}

func (c *LLMClient) complete(ctx context.Context, systemPrompt, instruction string, segments []models.Segment, temperature float32) ([]models.Segment, error) {
	compact := make([]llmSegment, 0, len(segments))
	for i, s := range segments {
		entry := llmSegment{I: i, S: s.Start, E: s.End, T: s.Text}
		if s.Speaker != nil {
			entry.Sp = *s.Speaker
		}
		compact = append(compact, entry)
	}
	payload, err := json.Marshal(compact)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: instruction + string(payload)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm returned no choices")
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal llm response: %w", err)
	}
	if len(parsed.Segments) == 0 {
		return nil, fmt.Errorf("llm returned no segments")
	}
	return parsed.Segments, nil
}
