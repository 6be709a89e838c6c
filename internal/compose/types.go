package compose

// Fixed output profile: a single vertical-video rendition.
const (
	outputFormat = "mp4"
	outputWidth  = 1080
	outputHeight = 1920
	outputFPS    = 30
	outputPreset = "high"
)

// Provider render statuses.
const (
	statusQueued    = "queued"
	statusRendering = "rendering"
	statusDone      = "done"
	statusFailed    = "failed"
)

// RenderSpec is the render request sent to the composition provider: a base
// video layer plus one styled text overlay per subtitle segment.
type RenderSpec struct {
	Timeline Timeline `json:"timeline"`
	Output   Output   `json:"output"`
}

type Timeline struct {
	Background string  `json:"background"`
	Tracks     []Track `json:"tracks"`
}

type Track struct {
	Clips []Clip `json:"clips"`
}

type Clip struct {
	Asset    Asset   `json:"asset"`
	Start    float64 `json:"start"`
	Length   float64 `json:"length"`
	Fit      string  `json:"fit,omitempty"`
	Position string  `json:"position,omitempty"`
}

type Asset struct {
	Type  string `json:"type"` // "video" or "title"
	Src   string `json:"src,omitempty"`
	Text  string `json:"text,omitempty"`
	Style string `json:"style,omitempty"`
}

type Output struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	FPS    int    `json:"fps"`
	Preset string `json:"preset"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type renderStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}
