package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/mshafei721/shorty-captioner/internal/fault"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		APIURL:       baseURL,
		APIKey:       "test-key",
		Language:     language.English,
		PollInterval: time.Millisecond,
		PollAttempts: 5,
	})
	require.NoError(t, err)
	return client
}

func writeTempMedia(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake media bytes"), 0o644))
	return path
}

func TestTranscribe_FullPipeline(t *testing.T) {
	var pollCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/upload":
			assert.Equal(t, "test-key", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example.com/u/abc"})
		case r.Method == http.MethodPost && r.URL.Path == "/transcript":
			var req createTaskRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "https://cdn.example.com/u/abc", req.AudioURL)
			assert.Equal(t, "en", req.LanguageCode)
			assert.True(t, req.Punctuate)
			json.NewEncoder(w).Encode(map[string]string{"id": "task-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/transcript/task-1":
			if pollCount.Add(1) < 3 {
				json.NewEncoder(w).Encode(taskStatusResponse{ID: "task-1", Status: "processing"})
				return
			}
			json.NewEncoder(w).Encode(taskStatusResponse{
				ID:     "task-1",
				Status: "completed",
				Text:   "hello world",
				Words: []wireWord{
					{Text: "hello", StartMS: 0, EndMS: 480, Confidence: 0.99},
					{Text: "world", StartMS: 500, EndMS: 1000, Confidence: 0.98},
				},
				Confidence:      0.985,
				AudioDurationMS: 1500,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.Transcribe(context.Background(), writeTempMedia(t))

	require.NoError(t, err)
	assert.Equal(t, "task-1", result.ID)
	assert.Equal(t, "hello world", result.Text)
	require.Len(t, result.Words, 2)
	assert.Equal(t, 0.48, result.Words[0].End)
	assert.Equal(t, 0.5, result.Words[1].Start)
	assert.Equal(t, 1.5, result.DurationSec)
	assert.EqualValues(t, 3, pollCount.Load())
}

func TestUpload_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage full", http.StatusInsufficientStorage)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Upload(context.Background(), writeTempMedia(t))

	require.Error(t, err)
	assert.True(t, fault.IsType(err, fault.Upload))
}

func TestUpload_MissingFile(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0")
	_, err := client.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))

	require.Error(t, err)
	assert.True(t, fault.IsType(err, fault.Upload))
}

func TestCreateTask_EmptyID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.CreateTask(context.Background(), "https://cdn.example.com/u/abc")

	require.Error(t, err)
	assert.True(t, fault.IsType(err, fault.TaskCreation))
}

func TestPollTask_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(taskStatusResponse{
			ID:     "task-1",
			Status: "error",
			Error:  "audio track unreadable",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.PollTask(context.Background(), "task-1")

	require.Error(t, err)
	assert.True(t, fault.IsType(err, fault.Provider))
	assert.Contains(t, err.Error(), "audio track unreadable")
}

func TestPollTask_CompletedWithoutWordsIsIncomplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(taskStatusResponse{
			ID:     "task-1",
			Status: "completed",
			Text:   "hello",
			Words:  nil,
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.PollTask(context.Background(), "task-1")

	require.Error(t, err)
	assert.True(t, fault.IsType(err, fault.IncompleteResult))
}

func TestPollTask_TimesOutDistinctFromProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(taskStatusResponse{ID: "task-1", Status: "queued"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.PollTask(context.Background(), "task-1")

	require.Error(t, err)
	assert.True(t, fault.IsType(err, fault.PollingTimeout))
	assert.False(t, fault.IsType(err, fault.Provider))
}

func TestPollTask_TransportErrorPropagatesImmediately(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.PollTask(context.Background(), "task-1")

	require.Error(t, err)
	assert.True(t, fault.IsType(err, fault.Transport))
	assert.EqualValues(t, 1, calls.Load(), "a failed poll must not be retried internally")
}
