// Package transcribe talks to the speech-to-text provider: it uploads source
// media, starts an asynchronous transcription task, and polls the task to a
// terminal state.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/text/language"

	"github.com/mshafei721/shorty-captioner/internal/captions"
	"github.com/mshafei721/shorty-captioner/internal/fault"
	"github.com/mshafei721/shorty-captioner/pkg/log"
	"github.com/mshafei721/shorty-captioner/pkg/poll"
)

// Config holds provider connection and polling settings.
type Config struct {
	APIURL       string
	APIKey       string
	Language     language.Tag
	PollInterval time.Duration
	PollAttempts int
	Timeout      time.Duration
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("transcription API URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("transcription API key is required")
	}
	return nil
}

// Client is the transcription provider client. Thread-safe for concurrent use.
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
		config.PollInterval = 3 * time.Second
	}
	if config.PollAttempts <= 0 {
		config.PollAttempts = 200
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

// Transcribe runs the full upload → create task → poll sequence for a local
// media file.
func (c *Client) Transcribe(ctx context.Context, mediaPath string) (*Result, error) {
	uploadURL, err := c.Upload(ctx, mediaPath)
	if err != nil {
		return nil, err
	}

	taskID, err := c.CreateTask(ctx, uploadURL)
	if err != nil {
		return nil, err
	}
	log.Info("Created transcription task %s for %s", taskID, mediaPath)

	return c.PollTask(ctx, taskID)
}

// Upload sends raw media bytes to the provider and returns the provider-side
// upload URL.
func (c *Client) Upload(ctx context.Context, mediaPath string) (string, error) {
	file, err := os.Open(mediaPath)
	if err != nil {
		return "", fault.Wrap(err, fault.Upload, "open media file").WithContext("path", mediaPath)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", file)
	if err != nil {
		return "", fault.Wrap(err, fault.Upload, "build upload request")
	}
	req.Header.Set("Authorization", c.config.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fault.Wrap(err, fault.Upload, "upload media").WithContext("path", mediaPath)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fault.Wrap(err, fault.Upload, "read upload response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fault.New(fault.Upload, fmt.Sprintf("upload failed with status %d: %s", resp.StatusCode, body))
	}

	var parsed uploadResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fault.Wrap(err, fault.Upload, "parse upload response")
	}
	if parsed.UploadURL == "" {
		return "", fault.New(fault.Upload, "provider returned no upload URL")
	}
	return parsed.UploadURL, nil
}

// CreateTask submits the uploaded media for asynchronous transcription and
// returns the provider task id.
func (c *Client) CreateTask(ctx context.Context, audioURL string) (string, error) {
	payload := createTaskRequest{
		AudioURL:     audioURL,
		LanguageCode: c.config.Language.String(),
		Punctuate:    true,
		FormatText:   true,
	}

	var parsed createTaskResponse
	if err := c.postJSON(ctx, "/transcript", payload, &parsed); err != nil {
		return "", fault.Wrap(err, fault.TaskCreation, "create transcription task")
	}
	if parsed.ID == "" {
		return "", fault.New(fault.TaskCreation, "provider returned no task id")
	}
	return parsed.ID, nil
}

// PollTask fetches task status on a fixed interval until the provider reports
// a terminal state or the attempt budget runs out. A transport failure on an
// individual poll propagates immediately; retrying it is the caller's call.
func (c *Client) PollTask(ctx context.Context, taskID string) (*Result, error) {
	var result *Result

	err := poll.Run(ctx, c.config.PollInterval, c.config.PollAttempts, func(ctx context.Context) (bool, error) {
		status, err := c.fetchStatus(ctx, taskID)
		if err != nil {
			return false, err
		}

		switch status.Status {
		case statusCompleted:
			if status.Text == "" || len(status.Words) == 0 {
				return false, fault.New(fault.IncompleteResult,
					"provider reported completion without transcript text or words").
					WithContext("task_id", taskID)
			}
			words := make([]captions.Word, len(status.Words))
			for i, w := range status.Words {
				words[i] = w.toSeconds()
			}
			result = &Result{
				ID:          status.ID,
				Text:        status.Text,
				Words:       words,
				Confidence:  status.Confidence,
				DurationSec: float64(status.AudioDurationMS) / 1000.0,
			}
			return true, nil
		case statusError:
			return false, fault.New(fault.Provider, status.Error).WithContext("task_id", taskID)
		default:
			log.Debug("Transcription task %s still %s", taskID, status.Status)
			return false, nil
		}
	})
	if err != nil {
		if errors.Is(err, poll.ErrBudgetExhausted) {
			return nil, fault.New(fault.PollingTimeout, "transcription did not finish within the attempt budget").
				WithContext("task_id", taskID)
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) fetchStatus(ctx context.Context, taskID string) (*taskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcript/"+taskID, nil)
	if err != nil {
		return nil, fault.Wrap(err, fault.Transport, "build status request")
	}
	req.Header.Set("Authorization", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fault.Wrap(err, fault.Transport, "fetch task status").WithContext("task_id", taskID)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Wrap(err, fault.Transport, "read status response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fault.New(fault.Transport, fmt.Sprintf("status request failed with status %d: %s", resp.StatusCode, body))
	}

	var parsed taskStatusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fault.Wrap(err, fault.Transport, "parse status response")
	}
	return &parsed, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
