package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"scribeline/internal/models"
)

// Rule-based merge parameters.
const (
	MaxGapSeconds  = 1.5
	MaxLengthChars = 200
)

const sentenceTerminals = "。！？.!?"

var cjkSpaceRe = regexp.MustCompile(`([\x{4e00}-\x{9fa5}，。！？、：；“”‘’（）【】])\s+([\x{4e00}-\x{9fa5}，。！？、：；“”‘’（）【】])`)

// MergeChunks folds fragmentary sub-word chunks into sentence-level
// segments. A new segment starts on speaker change, after sentence-final
// punctuation, when the joined text would run past MaxLengthChars, or
// after a silence longer than MaxGapSeconds.
func MergeChunks(chunks []models.Segment) []models.Segment {
	var merged []models.Segment
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		if len(merged) == 0 {
			merged = append(merged, chunk)
			continue
		}
		current := &merged[len(merged)-1]
		if startsNewSegment(current, &chunk) {
			merged = append(merged, chunk)
			continue
		}
		current.Text = SmartJoin(current.Text, chunk.Text)
		current.End = chunk.End
	}
	for i := range merged {
		merged[i].Text = CollapseCJKSpaces(merged[i].Text)
	}
	return merged
}

func startsNewSegment(current, next *models.Segment) bool {
	if speakerOf(current) != speakerOf(next) {
		return true
	}
	if endsWithTerminal(current.Text) {
		return true
	}
	if utf8.RuneCountInString(SmartJoin(current.Text, next.Text)) > MaxLengthChars {
		return true
	}
	return next.Start-current.End > MaxGapSeconds
}

func speakerOf(s *models.Segment) string {
	if s.Speaker == nil {
		return ""
	}
	return *s.Speaker
}

func endsWithTerminal(text string) bool {
	r, size := utf8.DecodeLastRuneInString(text)
	if size == 0 {
		return false
	}
	return strings.ContainsRune(sentenceTerminals, r)
}

// SmartJoin concatenates two fragments language-aware: a single space
// between alphanumeric neighbours, nothing otherwise.
func SmartJoin(left, right string) string {
	if left == "" {
		return right
	}
	if right == "" {
		return left
	}
	l, _ := utf8.DecodeLastRuneInString(left)
	r, _ := utf8.DecodeRuneInString(right)
	if isASCIIAlnum(l) && isASCIIAlnum(r) {
		return left + " " + right
	}
	return left + right
}

func isASCIIAlnum(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// CollapseCJKSpaces strips whitespace wedged between CJK characters and
// CJK punctuation. The replacement loops because overlapping matches
// leave residue in a single pass.
func CollapseCJKSpaces(text string) string {
	for {
		collapsed := cjkSpaceRe.ReplaceAllString(text, "$1$2")
		if collapsed == text {
			return collapsed
		}
		text = collapsed
	}
}
