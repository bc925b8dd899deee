package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribeline/internal/models"
)

func chunk(text string, start, end float64) models.Segment {
	return models.Segment{Start: start, End: end, Text: text}
}

func TestMergeChunksMixedScripts(t *testing.T) {
	chunks := []models.Segment{
		chunk("Hello", 0, 1.5),
		chunk("大家好,", 0.3, 1.8),
		chunk("我是 老", 0.56, 2.06),
		chunk("高 咱", 0.76, 2.26),
		chunk("们 今天", 0.98, 2.48),
		chunk("来 讲", 1.28, 2.78),
		chunk("一个话题。", 2.8, 4.0),
		chunk("那就是", 4.5, 5.5),
	}

	merged := MergeChunks(chunks)

	require.Len(t, merged, 2)
	assert.Equal(t, "Hello大家好,我是老高咱们今天来讲一个话题。", merged[0].Text)
	assert.Equal(t, 0.0, merged[0].Start)
	assert.Equal(t, 4.0, merged[0].End)
	assert.Equal(t, "那就是", merged[1].Text)
	assert.Equal(t, 4.5, merged[1].Start)
	assert.Equal(t, 5.5, merged[1].End)
}

func TestMergeChunksSplitsOnGap(t *testing.T) {
	merged := MergeChunks([]models.Segment{
		chunk("first part", 0, 1),
		chunk("second part", 3.0, 4.0),
	})

	require.Len(t, merged, 2)
	assert.Equal(t, "first part", merged[0].Text)
	assert.Equal(t, "second part", merged[1].Text)
}

func TestMergeChunksSplitsOnSpeakerChange(t *testing.T) {
	alice := "Speaker 0"
	bob := "Speaker 1"
	merged := MergeChunks([]models.Segment{
		{Start: 0, End: 1, Text: "hi there", Speaker: &alice},
		{Start: 1, End: 2, Text: "hello", Speaker: &bob},
	})

	require.Len(t, merged, 2)
	assert.Equal(t, "hi there", merged[0].Text)
	assert.Equal(t, "hello", merged[1].Text)
}

func TestMergeChunksSplitsOnLength(t *testing.T) {
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	merged := MergeChunks([]models.Segment{
		chunk(string(long), 0, 1),
		chunk(string(long), 1.2, 2.2),
	})

	require.Len(t, merged, 2)
}

func TestMergeChunksIdempotent(t *testing.T) {
	chunks := []models.Segment{
		chunk("Hello", 0, 1.5),
		chunk("大家好,", 0.3, 1.8),
		chunk("我是 老", 0.56, 2.06),
		chunk("一个话题。", 2.8, 4.0),
		chunk("那就是", 4.5, 5.5),
	}

	once := MergeChunks(chunks)
	twice := MergeChunks(once)

	assert.Equal(t, once, twice)
}

func TestSmartJoin(t *testing.T) {
	tests := []struct {
		left, right, want string
	}{
		{"Hello", "world", "Hello world"},
		{"你好", "世界", "你好世界"},
		{"Hello", "大家好", "Hello大家好"},
		{"你好,", "我是", "你好,我是"},
		{"version", "2", "version 2"},
		{"", "start", "start"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SmartJoin(tt.left, tt.right), "SmartJoin(%q, %q)", tt.left, tt.right)
	}
}

func TestCollapseCJKSpaces(t *testing.T) {
	assert.Equal(t, "我是老高", CollapseCJKSpaces("我是 老高"))
	// Overlapping matches need more than one pass.
	assert.Equal(t, "一二三四", CollapseCJKSpaces("一 二 三 四"))
	// Latin words keep their spacing.
	assert.Equal(t, "hello world", CollapseCJKSpaces("hello world"))
	assert.Equal(t, "讲一个 topic", CollapseCJKSpaces("讲 一个 topic"))
}

func TestCollapseCJKSpacesIdempotent(t *testing.T) {
	input := "咱们 今天 来 讲一个话题。"
	once := CollapseCJKSpaces(input)
	assert.Equal(t, once, CollapseCJKSpaces(once))
}
