package jobs

import "time"

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusCancelled
}

// Features are the processing options requested for a job. Only Subtitles is
// acted on today; the other flags are accepted and recorded but are no-ops.
type Features struct {
	Subtitles       bool `json:"subtitles"`
	Watermark       bool `json:"watermark"`
	BackgroundMusic bool `json:"background_music"`
}

// ProcessingJob is the authoritative lifecycle record of one end-to-end
// captioning request. All fields are safe to serialize verbatim.
type ProcessingJob struct {
	ID              string     `json:"id"`
	VideoID         string     `json:"video_id"`
	VideoPath       string     `json:"video_path"`
	Features        Features   `json:"features"`
	Status          Status     `json:"status"`
	Progress        int        `json:"progress"` // 0-100, monotonic until terminal
	TranscriptionID string     `json:"transcription_id,omitempty"`
	OutputURL       string     `json:"output_url,omitempty"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}
