// Package captions turns timed transcription words into display-ready
// subtitle segments.
package captions

import "strings"

const (
	DefaultMaxWordsPerSegment = 5
	DefaultMaxSegmentDuration = 3.0 // seconds
)

// Segment groups consecutive words into bounded display segments. A segment
// closes when it reaches maxWords words, when it spans at least maxDuration
// seconds, or at the end of the input. Output segments are time-ordered,
// non-overlapping, and partition the input words exactly.
func SegmentWords(words []Word, maxWords int, maxDuration float64) []Segment {
	if maxWords <= 0 {
		maxWords = DefaultMaxWordsPerSegment
	}
	if maxDuration <= 0 {
		maxDuration = DefaultMaxSegmentDuration
	}

	segments := make([]Segment, 0, (len(words)+maxWords-1)/maxWords)
	var current []Word

	flush := func() {
		if len(current) == 0 {
			return
		}
		texts := make([]string, len(current))
		for i, w := range current {
			texts[i] = w.Text
		}
		segments = append(segments, Segment{
			Start: current[0].Start,
			End:   current[len(current)-1].End,
			Text:  strings.Join(texts, " "),
		})
		current = current[:0]
	}

	for i, word := range words {
		current = append(current, word)

		span := word.End - current[0].Start
		if len(current) >= maxWords || span >= maxDuration || i == len(words)-1 {
			flush()
		}
	}

	return segments
}
