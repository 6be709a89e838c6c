package captions

// Word is a single transcribed word with its timing window in seconds.
type Word struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`      // seconds
	End        float64 `json:"end"`        // seconds
	Confidence float64 `json:"confidence"` // 0..1
}

// Segment is a contiguous run of words rendered as one on-screen subtitle.
type Segment struct {
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
	Text  string  `json:"text"`
}
