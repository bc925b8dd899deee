package subtitle

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribeline/internal/models"
)

func TestFormatSRTSingleSegment(t *testing.T) {
	got := FormatSRT([]models.Segment{{Start: 61.5, End: 62.001, Text: "hi"}})

	assert.Equal(t, "1\n00:01:01,500 --> 00:01:02,001\nhi\n", got)
}

func TestFormatSRTMultipleSegments(t *testing.T) {
	got := FormatSRT([]models.Segment{
		{Start: 0, End: 1.25, Text: "first"},
		{Start: 1.5, End: 3, Text: "second\nline two"},
	})

	want := "1\n00:00:00,000 --> 00:00:01,250\nfirst\n\n" +
		"2\n00:00:01,500 --> 00:00:03,000\nsecond\nline two\n"
	assert.Equal(t, want, got)
}

func TestFormatVTT(t *testing.T) {
	got := FormatVTT([]models.Segment{
		{Start: 0, End: 1.25, Text: "first"},
		{Start: 3661.5, End: 3662, Text: "second"},
	})

	assert.True(t, strings.HasPrefix(got, "WEBVTT\n\n"))
	assert.Contains(t, got, "00:00:00.000 --> 00:00:01.250\nfirst\n")
	assert.Contains(t, got, "01:01:01.500 --> 01:01:02.000\nsecond\n")
}

var srtTimeRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3}) --> (\d{2}):(\d{2}):(\d{2}),(\d{3})`)

func parseSRTTimes(t *testing.T, doc string) [][2]float64 {
	t.Helper()
	var spans [][2]float64
	for _, m := range srtTimeRe.FindAllStringSubmatch(doc, -1) {
		var vals [8]float64
		for i := 0; i < 8; i++ {
			n, err := strconv.Atoi(m[i+1])
			require.NoError(t, err)
			vals[i] = float64(n)
		}
		start := vals[0]*3600 + vals[1]*60 + vals[2] + vals[3]/1000
		end := vals[4]*3600 + vals[5]*60 + vals[6] + vals[7]/1000
		spans = append(spans, [2]float64{start, end})
	}
	return spans
}

func TestSRTRoundTripsWithinOneMillisecond(t *testing.T) {
	segments := []models.Segment{
		{Start: 0.0015, End: 1.9994, Text: "a"},
		{Start: 61.5, End: 62.001, Text: "b"},
		{Start: 3599.999, End: 3600.5, Text: "c"},
	}

	spans := parseSRTTimes(t, FormatSRT(segments))

	require.Len(t, spans, len(segments))
	for i, span := range spans {
		assert.LessOrEqual(t, math.Abs(span[0]-segments[i].Start), 0.001, "segment %d start", i)
		assert.LessOrEqual(t, math.Abs(span[1]-segments[i].End), 0.001, "segment %d end", i)
	}
}
