// Package jobs holds the processing-job model, the job store, and the
// orchestrator that drives each job through transcription, segmentation, and
// composition.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/mshafei721/shorty-captioner/internal/captions"
	"github.com/mshafei721/shorty-captioner/internal/fault"
	"github.com/mshafei721/shorty-captioner/internal/transcribe"
	"github.com/mshafei721/shorty-captioner/pkg/log"
)

// Progress milestones reported while a job is processing.
const (
	progressTranscribing = 10
	progressTranscribed  = 40
	progressSegmented    = 50
	progressComposed     = 90
	progressDone         = 100
)

// Transcriber produces a timed transcript for a local media file.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) (*transcribe.Result, error)
}

// Composer renders the captioned output video and returns its URL.
type Composer interface {
	Compose(ctx context.Context, videoRef string, segments []captions.Segment, videoDurationSec float64) (string, error)
}

// MediaStore is the narrow contract with uploaded source media.
type MediaStore interface {
	FileExists(path string) bool
	DeleteFile(path string) error
}

// Orchestrator sequences the pipeline per job and is the only writer of job
// state. Pipeline failures are recorded on the job and never rethrown to the
// caller that triggered the run.
type Orchestrator struct {
	store       Store
	persister   Persister
	transcriber Transcriber
	composer    Composer
	media       MediaStore
	dispatcher  *Dispatcher

	cleanupDelay    time.Duration
	segmentMaxWords int
	segmentMaxDur   float64

	reapGroup singleflight.Group
}

type Option func(*Orchestrator)

// WithPersister mirrors job state to durable storage and recovers it on
// startup.
func WithPersister(p Persister) Option {
	return func(o *Orchestrator) {
		o.persister = p
	}
}

// WithCleanupDelay sets the grace delay before deleting the source media of a
// completed job.
func WithCleanupDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.cleanupDelay = d
	}
}

// WithSegmentBounds overrides the subtitle segmentation limits.
func WithSegmentBounds(maxWords int, maxDurationSec float64) Option {
	return func(o *Orchestrator) {
		o.segmentMaxWords = maxWords
		o.segmentMaxDur = maxDurationSec
	}
}

func NewOrchestrator(store Store, transcriber Transcriber, composer Composer, media MediaStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:           store,
		transcriber:     transcriber,
		composer:        composer,
		media:           media,
		dispatcher:      NewDispatcher(),
		cleanupDelay:    5 * time.Second,
		segmentMaxWords: captions.DefaultMaxWordsPerSegment,
		segmentMaxDur:   captions.DefaultMaxSegmentDuration,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.recoverFromPersister()
	return o
}

// Stop rejects new runs and waits for in-flight pipelines.
func (o *Orchestrator) Stop() {
	o.dispatcher.Stop()
}

// CreateJob allocates a new job in queued state. Pure bookkeeping.
func (o *Orchestrator) CreateJob(videoID, videoPath string, features Features) *ProcessingJob {
	job := &ProcessingJob{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		VideoPath: videoPath,
		Features:  features,
		Status:    StatusQueued,
		Progress:  0,
		StartedAt: time.Now(),
	}
	o.store.Put(job)
	o.persist(job)
	return cloneJob(job)
}

// GetJob returns a snapshot of one job.
func (o *Orchestrator) GetJob(id string) (*ProcessingJob, bool) {
	return o.store.Get(id)
}

// ListJobs returns snapshots of all known jobs, newest first.
func (o *Orchestrator) ListJobs() []*ProcessingJob {
	return o.store.List()
}

// DispatchRun schedules Run on a detached goroutine. The trigger path never
// waits for, or hears about, the outcome.
func (o *Orchestrator) DispatchRun(jobID, videoPath string) bool {
	return o.dispatcher.Dispatch(func() {
		o.Run(jobID, videoPath)
	})
}

// Run drives the pipeline for one job: transcribe, segment, and, when
// requested, compose. Source media cleanup is attempted on every exit path.
func (o *Orchestrator) Run(jobID, videoPath string) {
	ctx := context.Background()

	snapshot, started := o.markProcessing(jobID)
	if !started {
		if snapshot == nil {
			log.Warn("Run requested for unknown job %s", jobID)
			return
		}
		log.Info("Job %s is already %s, skipping run", jobID, snapshot.Status)
		if snapshot.Status.IsTerminal() {
			// Cancelled before the pipeline began: still clean up the source.
			o.cleanupNow(videoPath)
		}
		return
	}

	if !o.media.FileExists(videoPath) {
		o.failJob(jobID, videoPath,
			fault.New(fault.NotFound, "source media not found").WithContext("path", videoPath))
		return
	}

	result, err := o.transcriber.Transcribe(ctx, videoPath)
	if err != nil {
		o.failJob(jobID, videoPath, err)
		return
	}
	o.update(jobID, func(job *ProcessingJob) bool {
		if job.Status.IsTerminal() {
			return false
		}
		job.TranscriptionID = result.ID
		raiseProgress(job, progressTranscribed)
		return true
	})

	// Cancellation checkpoint: the single point where a cancel request is
	// honored. A cancel arriving later takes effect only after composition
	// finishes.
	if current, ok := o.store.Get(jobID); ok && current.Status == StatusCancelled {
		log.Info("Job %s cancelled after transcription, cleaning up", jobID)
		o.cleanupNow(videoPath)
		return
	}

	segments := captions.SegmentWords(result.Words, o.segmentMaxWords, o.segmentMaxDur)
	o.setProgress(jobID, progressSegmented)

	if snapshot.Features.Subtitles {
		outputURL, err := o.composer.Compose(ctx, videoPath, segments, result.DurationSec)
		if err != nil {
			o.failJob(jobID, videoPath, err)
			return
		}
		o.update(jobID, func(job *ProcessingJob) bool {
			if job.Status.IsTerminal() {
				return false
			}
			job.OutputURL = outputURL
			raiseProgress(job, progressComposed)
			return true
		})
	}

	completed, ok := o.update(jobID, func(job *ProcessingJob) bool {
		if job.Status.IsTerminal() {
			return false
		}
		job.Status = StatusComplete
		raiseProgress(job, progressDone)
		now := time.Now()
		job.CompletedAt = &now
		return true
	})
	if !ok {
		// Cancelled while composing; the cancel already set terminal state.
		if completed != nil {
			log.Info("Job %s finished pipeline but is %s, leaving it untouched", jobID, completed.Status)
		}
		o.cleanupNow(videoPath)
		return
	}

	log.Info("Job %s complete", jobID)
	o.cleanupDeferred(videoPath)
}

// Cancel flips a non-terminal job to cancelled. Cooperative: an in-flight
// provider call is not interrupted; the pipeline honors the cancel at its
// checkpoint.
func (o *Orchestrator) Cancel(jobID string) bool {
	snapshot, ok := o.update(jobID, func(job *ProcessingJob) bool {
		if job.Status.IsTerminal() {
			return false
		}
		job.Status = StatusCancelled
		now := time.Now()
		job.CompletedAt = &now
		return true
	})
	if ok {
		log.Info("Job %s cancelled", jobID)
	} else if snapshot != nil {
		log.Debug("Cancel rejected for job %s in status %s", jobID, snapshot.Status)
	}
	return ok
}

// ReapTerminalJobs removes terminal jobs whose completion predates maxAge.
// Concurrent calls collapse into one sweep.
func (o *Orchestrator) ReapTerminalJobs(maxAge time.Duration) int {
	count, _, _ := o.reapGroup.Do("reap", func() (any, error) {
		cutoff := time.Now().Add(-maxAge)
		removed := 0
		for _, job := range o.store.List() {
			if !job.Status.IsTerminal() || job.CompletedAt == nil {
				continue
			}
			if !job.CompletedAt.Before(cutoff) {
				continue
			}
			o.store.Delete(job.ID)
			if o.persister != nil {
				if err := o.persister.DeleteJob(context.Background(), job.ID); err != nil {
					log.Error("Failed to delete reaped job %s from persister: %v", job.ID, err)
				}
			}
			removed++
		}
		if removed > 0 {
			log.Info("Reaped %d terminal jobs older than %s", removed, maxAge)
		}
		return removed, nil
	})
	return count.(int)
}

func (o *Orchestrator) markProcessing(jobID string) (*ProcessingJob, bool) {
	return o.update(jobID, func(job *ProcessingJob) bool {
		if job.Status != StatusQueued {
			return false
		}
		job.Status = StatusProcessing
		raiseProgress(job, progressTranscribing)
		return true
	})
}

func (o *Orchestrator) failJob(jobID, videoPath string, cause error) {
	snapshot, ok := o.update(jobID, func(job *ProcessingJob) bool {
		if job.Status.IsTerminal() {
			return false
		}
		job.Status = StatusFailed
		job.Error = cause.Error()
		now := time.Now()
		job.CompletedAt = &now
		return true
	})
	if ok {
		log.Error("Job %s failed: %v", jobID, cause)
	} else if snapshot != nil {
		log.Info("Job %s already %s, not recording failure: %v", jobID, snapshot.Status, cause)
	}
	o.cleanupNow(videoPath)
}

func (o *Orchestrator) setProgress(jobID string, progress int) {
	o.update(jobID, func(job *ProcessingJob) bool {
		if job.Status.IsTerminal() {
			return false
		}
		raiseProgress(job, progress)
		return true
	})
}

// update applies fn through the store and mirrors accepted changes to the
// persister.
func (o *Orchestrator) update(jobID string, fn func(job *ProcessingJob) bool) (*ProcessingJob, bool) {
	snapshot, ok := o.store.Update(jobID, fn)
	if ok {
		o.persist(snapshot)
	}
	return snapshot, ok
}

func (o *Orchestrator) persist(job *ProcessingJob) {
	if o.persister == nil || job == nil {
		return
	}
	if err := o.persister.UpsertJob(context.Background(), job); err != nil {
		log.Error("Failed to persist job %s: %v", job.ID, err)
	}
}

// cleanupNow deletes the source media immediately, best-effort.
func (o *Orchestrator) cleanupNow(videoPath string) {
	if videoPath == "" {
		return
	}
	if err := o.media.DeleteFile(videoPath); err != nil {
		log.Warn("Failed to delete source media %s: %v", videoPath, err)
	}
}

// cleanupDeferred deletes the source media after a short grace delay so a
// caller fetching the finished job can still reference it briefly.
func (o *Orchestrator) cleanupDeferred(videoPath string) {
	if videoPath == "" {
		return
	}
	delay := o.cleanupDelay
	go func() {
		time.Sleep(delay)
		if err := o.media.DeleteFile(videoPath); err != nil {
			log.Warn("Failed to delete source media %s: %v", videoPath, err)
		}
	}()
}

func (o *Orchestrator) recoverFromPersister() {
	if o.persister == nil {
		return
	}
	loaded, err := o.persister.LoadJobs(context.Background())
	if err != nil {
		log.Error("Failed to load jobs from persister: %v", err)
		return
	}

	recovered := 0
	for _, job := range loaded {
		if job == nil || job.ID == "" {
			continue
		}
		if !job.Status.IsTerminal() {
			// The detached pipeline goroutine did not survive the restart.
			job.Status = StatusFailed
			job.Error = "interrupted by restart"
			now := time.Now()
			job.CompletedAt = &now
			o.persist(job)
		}
		o.store.Put(job)
		recovered++
	}
	if recovered > 0 {
		log.Info("Recovered %d jobs from persister", recovered)
	}
}

func raiseProgress(job *ProcessingJob, progress int) {
	if progress > job.Progress {
		job.Progress = progress
	}
}
