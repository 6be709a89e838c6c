package transcribe

import "github.com/mshafei721/shorty-captioner/internal/captions"

// Result is a finished transcription with word timings already normalized
// to seconds.
type Result struct {
	ID          string          `json:"id"`
	Text        string          `json:"text"`
	Words       []captions.Word `json:"words"`
	Confidence  float64         `json:"confidence"`
	DurationSec float64         `json:"duration_sec"`
}

// Provider task statuses.
const (
	statusQueued     = "queued"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusError      = "error"
)

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type createTaskRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code"`
	Punctuate    bool   `json:"punctuate"`
	FormatText   bool   `json:"format_text"`
}

type createTaskResponse struct {
	ID string `json:"id"`
}

// wireWord carries provider word timings in milliseconds.
type wireWord struct {
	Text       string  `json:"text"`
	StartMS    int64   `json:"start_ms"`
	EndMS      int64   `json:"end_ms"`
	Confidence float64 `json:"confidence"`
}

type taskStatusResponse struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	Text            string     `json:"text"`
	Words           []wireWord `json:"words"`
	Confidence      float64    `json:"confidence"`
	AudioDurationMS int64      `json:"audio_duration_ms"`
	Error           string     `json:"error,omitempty"`
}

func (w wireWord) toSeconds() captions.Word {
	return captions.Word{
		Text:       w.Text,
		Start:      float64(w.StartMS) / 1000.0,
		End:        float64(w.EndMS) / 1000.0,
		Confidence: w.Confidence,
	}
}
