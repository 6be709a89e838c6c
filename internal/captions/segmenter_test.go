package captions

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformWords(texts []string, startAt, gap float64) []Word {
	words := make([]Word, len(texts))
	at := startAt
	for i, text := range texts {
		words[i] = Word{Text: text, Start: at, End: at + gap, Confidence: 0.95}
		at += gap
	}
	return words
}

func TestSegmentWords_EmptyInput(t *testing.T) {
	assert.Empty(t, SegmentWords(nil, 5, 3.0))
	assert.Empty(t, SegmentWords([]Word{}, 5, 3.0))
}

func TestSegmentWords_SingleWord(t *testing.T) {
	words := []Word{{Text: "hello", Start: 1.2, End: 1.8}}

	segments := SegmentWords(words, 5, 3.0)

	require.Len(t, segments, 1)
	assert.Equal(t, "hello", segments[0].Text)
	assert.Equal(t, 1.2, segments[0].Start)
	assert.Equal(t, 1.8, segments[0].End)
}

func TestSegmentWords_WordCountRuleClosesSegments(t *testing.T) {
	texts := []string{"This", "is", "a", "test", "sentence", "with", "more", "words"}
	words := uniformWords(texts, 0, 0.2)

	segments := SegmentWords(words, 5, 3.0)

	require.Len(t, segments, 2)
	assert.Equal(t, "This is a test sentence", segments[0].Text)
	assert.Equal(t, "with more words", segments[1].Text)
}

func TestSegmentWords_WordCountDominatesLargeDurationBound(t *testing.T) {
	texts := make([]string, 12)
	for i := range texts {
		texts[i] = fmt.Sprintf("w%d", i)
	}
	words := uniformWords(texts, 0, 0.1)

	segments := SegmentWords(words, 5, 1000)

	require.GreaterOrEqual(t, len(segments), 2)
	for _, seg := range segments {
		assert.LessOrEqual(t, len(strings.Fields(seg.Text)), 5)
	}
}

func TestSegmentWords_DurationRuleClosesSegments(t *testing.T) {
	// Each word lasts 2s, so any two consecutive words span >= 3s.
	words := uniformWords([]string{"slow", "speech", "here", "now"}, 0, 2.0)

	segments := SegmentWords(words, 50, 3.0)

	require.Len(t, segments, 2)
	assert.Equal(t, "slow speech", segments[0].Text)
	assert.Equal(t, "here now", segments[1].Text)
}

func TestSegmentWords_PartitionsInputExactly(t *testing.T) {
	texts := make([]string, 37)
	for i := range texts {
		texts[i] = fmt.Sprintf("word%d", i)
	}
	words := uniformWords(texts, 5.0, 0.31)

	segments := SegmentWords(words, 4, 2.5)

	var rejoined []string
	for i, seg := range segments {
		rejoined = append(rejoined, strings.Fields(seg.Text)...)
		if i > 0 {
			assert.GreaterOrEqual(t, seg.Start, segments[i-1].End,
				"segments must not overlap")
		}
		assert.Less(t, seg.Start, seg.End)
	}
	assert.Equal(t, texts, rejoined, "every word appears exactly once, in order")
}

func TestSegmentWords_DefaultsAppliedForNonPositiveBounds(t *testing.T) {
	words := uniformWords([]string{"a", "b", "c", "d", "e", "f"}, 0, 0.1)

	segments := SegmentWords(words, 0, 0)

	require.Len(t, segments, 2)
	assert.Equal(t, "a b c d e", segments[0].Text)
	assert.Equal(t, "f", segments[1].Text)
}
