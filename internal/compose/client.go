// Package compose talks to the video-rendering provider: it builds a render
// specification from a base video and timed subtitle segments, submits it,
// and polls the render task to a terminal state.
package compose

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mshafei721/shorty-captioner/internal/captions"
	"github.com/mshafei721/shorty-captioner/internal/fault"
	"github.com/mshafei721/shorty-captioner/pkg/log"
	"github.com/mshafei721/shorty-captioner/pkg/poll"
)

// Config holds provider connection and polling settings.
type Config struct {
	APIURL       string
	APIKey       string
	PollInterval time.Duration
	PollAttempts int
	Timeout      time.Duration
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("composition API URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("composition API key is required")
	}
	return nil
}

// Client is the composition provider client. Thread-safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
	baseURL    string
}

func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.PollAttempts <= 0 {
		config.PollAttempts = 300
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config:  config,
		baseURL: config.APIURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Compose renders the captioned output video and returns its URL.
func (c *Client) Compose(ctx context.Context, videoRef string, segments []captions.Segment, videoDurationSec float64) (string, error) {
	spec := BuildSpec(videoRef, segments, videoDurationSec)

	renderID, err := c.Submit(ctx, spec)
	if err != nil {
		return "", err
	}
	log.Info("Submitted render %s for %s (%d subtitle overlays)", renderID, videoRef, len(segments))

	return c.PollRender(ctx, renderID)
}

// BuildSpec constructs the render specification: a full-duration base video
// clip cropped to the vertical canvas plus one bottom-positioned text clip
// per subtitle segment.
func BuildSpec(videoRef string, segments []captions.Segment, videoDurationSec float64) RenderSpec {
	tracks := []Track{
		{
			Clips: []Clip{
				{
					Asset:  Asset{Type: "video", Src: videoRef},
					Start:  0,
					Length: videoDurationSec,
					Fit:    "crop",
				},
			},
		},
	}

	if len(segments) > 0 {
		clips := make([]Clip, len(segments))
		for i, seg := range segments {
			clips[i] = Clip{
				Asset:    Asset{Type: "title", Text: seg.Text, Style: "subtitle"},
				Start:    seg.Start,
				Length:   seg.End - seg.Start,
				Position: "bottom",
			}
		}
		tracks = append(tracks, Track{Clips: clips})
	}

	return RenderSpec{
		Timeline: Timeline{
			Background: "#000000",
			Tracks:     tracks,
		},
		Output: Output{
			Format: outputFormat,
			Width:  outputWidth,
			Height: outputHeight,
			FPS:    outputFPS,
			Preset: outputPreset,
		},
	}
}

// Submit sends the render specification and returns the provider render id.
func (c *Client) Submit(ctx context.Context, spec RenderSpec) (string, error) {
	jsonData, err := json.Marshal(spec)
	if err != nil {
		return "", fault.Wrap(err, fault.Submission, "marshal render spec")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fault.Wrap(err, fault.Submission, "build render request")
	}
	req.Header.Set("Authorization", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fault.Wrap(err, fault.Submission, "submit render")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fault.Wrap(err, fault.Submission, "read render response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fault.New(fault.Submission, fmt.Sprintf("render submission failed with status %d: %s", resp.StatusCode, body))
	}

	var parsed submitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fault.Wrap(err, fault.Submission, "parse render response")
	}
	if parsed.ID == "" {
		return "", fault.New(fault.Submission, "provider returned no render id")
	}
	return parsed.ID, nil
}

// PollRender fetches render status on a fixed interval until the provider
// reports a terminal state or the attempt budget runs out. A transport
// failure on an individual poll propagates immediately.
func (c *Client) PollRender(ctx context.Context, renderID string) (string, error) {
	var outputURL string

	err := poll.Run(ctx, c.config.PollInterval, c.config.PollAttempts, func(ctx context.Context) (bool, error) {
		status, err := c.fetchStatus(ctx, renderID)
		if err != nil {
			return false, err
		}

		switch status.Status {
		case statusDone:
			if status.URL == "" {
				return false, fault.New(fault.MissingOutput,
					"provider reported render done without an output URL").
					WithContext("render_id", renderID)
			}
			outputURL = status.URL
			return true, nil
		case statusFailed:
			message := status.Error
			if message == "" {
				message = "provider reported render failure"
			}
			return false, fault.New(fault.Render, message).WithContext("render_id", renderID)
		default:
			log.Debug("Render %s still %s", renderID, status.Status)
			return false, nil
		}
	})
	if err != nil {
		if errors.Is(err, poll.ErrBudgetExhausted) {
			return "", fault.New(fault.PollingTimeout, "render did not finish within the attempt budget").
				WithContext("render_id", renderID)
		}
		return "", err
	}
	return outputURL, nil
}

func (c *Client) fetchStatus(ctx context.Context, renderID string) (*renderStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/render/"+renderID, nil)
	if err != nil {
		return nil, fault.Wrap(err, fault.Transport, "build status request")
	}
	req.Header.Set("Authorization", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fault.Wrap(err, fault.Transport, "fetch render status").WithContext("render_id", renderID)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Wrap(err, fault.Transport, "read status response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fault.New(fault.Transport, fmt.Sprintf("status request failed with status %d: %s", resp.StatusCode, body))
	}

	var parsed renderStatusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fault.Wrap(err, fault.Transport, "parse status response")
	}
	return &parsed, nil
}
