package normalize

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/abadojack/whatlanggo"

	"scribeline/internal/models"
)

// Normalizer turns provider chunks into sentence-level segments. With an
// LLM configured it can merge semantically and translate; without one it
// falls back to the rule-based merge.
type Normalizer struct {
	llm LLM
}

func New(llm LLM) *Normalizer {
	return &Normalizer{llm: llm}
}

// Merge normalizes chunks into sentence segments. LLM failures are
// recoverable: the rule-based merge is always a valid result.
func (n *Normalizer) Merge(ctx context.Context, chunks []models.Segment, useLLM bool) []models.Segment {
	if useLLM && n.llm != nil {
		merged, err := n.llm.MergeSegments(ctx, chunks)
		if err == nil {
			return merged
		}
		log.Printf("llm merge failed, falling back to rule-based merge: %v", err)
	}
	return MergeChunks(chunks)
}

// Translate rewrites segment text into targetLang. Translation has no
// correct fallback, so failures propagate. Segments already in the
// target language are returned unchanged without an LLM round-trip.
func (n *Normalizer) Translate(ctx context.Context, segments []models.Segment, targetLang string) ([]models.Segment, error) {
	if n.llm == nil {
		return nil, fmt.Errorf("translation requested but no llm is configured")
	}
	if detectedLang(segments) == strings.ToLower(targetLang) {
		return segments, nil
	}
	translated, err := n.llm.TranslateSegments(ctx, segments, targetLang)
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}
	return translated, nil
}

func detectedLang(segments []models.Segment) string {
	var sb strings.Builder
	for _, s := range segments {
		sb.WriteString(s.Text)
		sb.WriteString(" ")
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return ""
	}
	return whatlanggo.DetectLang(text).Iso6391()
}
