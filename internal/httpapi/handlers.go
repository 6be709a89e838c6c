package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mshafei721/shorty-captioner/internal/jobs"
)

type createJobRequest struct {
	VideoID   string        `json:"video_id"`
	VideoPath string        `json:"video_path"`
	Features  jobs.Features `json:"features"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.orchestrator.ListJobs())
	case http.MethodPost:
		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.VideoID == "" {
			writeError(w, http.StatusBadRequest, "video_id is required")
			return
		}
		videoPath := req.VideoPath
		if videoPath == "" {
			if s.resolve == nil {
				writeError(w, http.StatusBadRequest, "video_path is required")
				return
			}
			videoPath = s.resolve.Resolve(req.VideoID)
		}

		job := s.orchestrator.CreateJob(req.VideoID, videoPath, req.Features)
		s.orchestrator.DispatchRun(job.ID, videoPath)
		writeJSON(w, http.StatusCreated, job)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleJobByID serves /api/jobs/{id} and /api/jobs/{id}/cancel.
func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	rest = strings.TrimSuffix(rest, "/")

	if id, ok := strings.CutSuffix(rest, "/cancel"); ok {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleCancel(w, id)
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	job, ok := s.orchestrator.GetJob(rest)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job id")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancel(w http.ResponseWriter, id string) {
	if _, ok := s.orchestrator.GetJob(id); !ok {
		writeError(w, http.StatusNotFound, "unknown job id")
		return
	}

	accepted := s.orchestrator.Cancel(id)
	job, _ := s.orchestrator.GetJob(id)
	status := http.StatusOK
	if !accepted {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{
		"cancelled": accepted,
		"job":       job,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
