package normalize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribeline/internal/models"
)

type fakeLLM struct {
	mergeResult     []models.Segment
	mergeErr        error
	translateResult []models.Segment
	translateErr    error
	translateCalls  int
}

func (f *fakeLLM) MergeSegments(ctx context.Context, segments []models.Segment) ([]models.Segment, error) {
	return f.mergeResult, f.mergeErr
}

func (f *fakeLLM) TranslateSegments(ctx context.Context, segments []models.Segment, targetLang string) ([]models.Segment, error) {
	f.translateCalls++
	return f.translateResult, f.translateErr
}

func TestMergeUsesLLMWhenAvailable(t *testing.T) {
	want := []models.Segment{{Start: 0, End: 2, Text: "merged by llm"}}
	n := New(&fakeLLM{mergeResult: want})

	got := n.Merge(context.Background(), []models.Segment{{Start: 0, End: 1, Text: "merged"}, {Start: 1, End: 2, Text: "by llm"}}, true)

	assert.Equal(t, want, got)
}

func TestMergeFallsBackToRulesOnLLMFailure(t *testing.T) {
	n := New(&fakeLLM{mergeErr: errors.New("rate limited")})

	got := n.Merge(context.Background(), []models.Segment{
		{Start: 0, End: 1, Text: "hello"},
		{Start: 1.1, End: 2, Text: "world"},
	}, true)

	require.Len(t, got, 1)
	assert.Equal(t, "hello world", got[0].Text)
}

func TestMergeSkipsLLMWhenNotRequested(t *testing.T) {
	llm := &fakeLLM{mergeResult: []models.Segment{{Text: "should not be used"}}}
	n := New(llm)

	got := n.Merge(context.Background(), []models.Segment{{Start: 0, End: 1, Text: "plain"}}, false)

	require.Len(t, got, 1)
	assert.Equal(t, "plain", got[0].Text)
}

func TestTranslateFailsWithoutLLM(t *testing.T) {
	n := New(nil)

	_, err := n.Translate(context.Background(), []models.Segment{{Text: "hello"}}, "zh")

	assert.Error(t, err)
}

func TestTranslateFailurePropagates(t *testing.T) {
	n := New(&fakeLLM{translateErr: errors.New("model unavailable")})

	_, err := n.Translate(context.Background(), []models.Segment{{Text: "hello there, how are you today"}}, "zh")

	assert.Error(t, err)
}

func TestTranslateIdentityShortcut(t *testing.T) {
	llm := &fakeLLM{translateResult: []models.Segment{{Text: "should not be used"}}}
	n := New(llm)

	segments := []models.Segment{{Start: 0, End: 1, Text: "The quick brown fox jumps over the lazy dog and keeps on running."}}
	got, err := n.Translate(context.Background(), segments, "en")

	require.NoError(t, err)
	assert.Equal(t, segments, got)
	assert.Zero(t, llm.translateCalls)
}
