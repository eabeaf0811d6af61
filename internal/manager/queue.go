package manager

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidtutor/internal/core"
	"vidtutor/internal/knowledge"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

const (
	queueSize     = 100
	indexingLabel = "Transcribing and indexing..."
)

var (
	ErrAlreadyProcessing = errors.New("processing already in progress")
	ErrQueueFull         = errors.New("processing queue is full")
	ErrNoSources         = errors.New("no sources to process")
	ErrJobNotFound       = errors.New("no job for session")
)

// Job is the processing run of one session.
type Job struct {
	ID                  string     `json:"id"`
	SessionID           string     `json:"session_id"`
	Mode                string     `json:"mode"`
	Sources             []string   `json:"sources"`
	Total               int        `json:"total"`
	Completed           int        `json:"completed"`
	CurrentFile         string     `json:"current_file"`
	Status              Status     `json:"status"`
	StartedAt           time.Time  `json:"started_at"`
	FinishedAt          *time.Time `json:"finished_at,omitempty"`
	EstimatedCompletion string     `json:"estimated_completion,omitempty"`
	TotalTime           string     `json:"total_time,omitempty"`
	Error               string     `json:"error,omitempty"`
}

// Snapshot is the progress view served to clients.
type Snapshot struct {
	Status              string  `json:"status"`
	Progress            float64 `json:"progress"`
	CurrentFile         string  `json:"currentFile"`
	CompletedFiles      int     `json:"completedFiles"`
	TotalFiles          int     `json:"totalFiles"`
	EstimatedCompletion string  `json:"estimatedCompletion,omitempty"`
	ElapsedTime         string  `json:"elapsedTime"`
	TotalTime           string  `json:"totalTime,omitempty"`
	Message             string  `json:"message,omitempty"`
}

type AudioSource interface {
	DownloadAudio(ctx context.Context, url, outputBase, jobID string) (string, error)
	ConvertToMP3(ctx context.Context, input, output, jobID string) error
}

type KnowledgeIndexer interface {
	IndexAudio(ctx context.Context, sessionID string, sources []knowledge.Source) error
}

type JobManager struct {
	audio         AudioSource
	indexer       KnowledgeIndexer
	jobs          map[string]*Job // by session
	queue         chan *Job
	maxConcurrent int
	activeWorkers int
	workerCtx     context.Context
	workerCancel  context.CancelFunc
	cancelFuncs   map[string]context.CancelFunc
	mutex         sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	workDir       string
	stateDir      string
}

// NewJobManager starts maxConcurrent workers and restores the previous
// state from stateDir. Downloaded audio is written to workDir.
func NewJobManager(audio AudioSource, indexer KnowledgeIndexer, maxConcurrent int, workDir, stateDir string) *JobManager {
	ctx, cancel := context.WithCancel(context.Background())
	workerCtx, workerCancel := context.WithCancel(ctx)

	jm := &JobManager{
		audio:         audio,
		indexer:       indexer,
		jobs:          make(map[string]*Job),
		queue:         make(chan *Job, queueSize),
		maxConcurrent: maxConcurrent,
		workerCtx:     workerCtx,
		workerCancel:  workerCancel,
		cancelFuncs:   make(map[string]context.CancelFunc),
		ctx:           ctx,
		cancel:        cancel,
		workDir:       workDir,
		stateDir:      stateDir,
	}

	if err := jm.LoadState(); err != nil {
		log.Printf("[MANAGER] Failed to load previous state: %v", err)
	}

	jm.startWorkers(maxConcurrent)
	jm.StartPeriodicStateSave()

	return jm
}

// Start queues a processing job for the session. A session may only have
// one queued or running job.
func (jm *JobManager) Start(sessionID, mode string, sources []string) (*Job, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	jm.mutex.Lock()
	defer jm.mutex.Unlock()

	if existing, ok := jm.jobs[sessionID]; ok && isActive(existing.Status) {
		return nil, ErrAlreadyProcessing
	}

	job := &Job{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Mode:      mode,
		Sources:   append([]string(nil), sources...),
		Total:     len(sources),
		Status:    StatusQueued,
		StartedAt: time.Now(),
	}

	select {
	case jm.queue <- job:
		jm.jobs[sessionID] = job
		log.Printf("[MANAGER] Job %s queued for session %s: mode=%s, %d sources", job.ID, sessionID, mode, len(sources))
		return job, nil
	default:
		log.Printf("[MANAGER] Queue is full, rejecting job for session %s", sessionID)
		return nil, ErrQueueFull
	}
}

func isActive(s Status) bool {
	return s == StatusQueued || s == StatusProcessing
}

// Progress returns the session's progress. ok is false when the session
// never started a job.
func (jm *JobManager) Progress(sessionID string) (Snapshot, bool) {
	jm.mutex.RLock()
	defer jm.mutex.RUnlock()

	job, ok := jm.jobs[sessionID]
	if !ok {
		return Snapshot{}, false
	}

	snap := Snapshot{
		Status:              string(job.Status),
		CurrentFile:         job.CurrentFile,
		CompletedFiles:      job.Completed,
		TotalFiles:          job.Total,
		EstimatedCompletion: job.EstimatedCompletion,
		TotalTime:           job.TotalTime,
		Message:             job.Error,
	}
	if job.Status == StatusQueued {
		snap.Status = string(StatusProcessing)
	}
	if job.Total > 0 {
		snap.Progress = float64(job.Completed) / float64(job.Total) * 100
	}

	end := time.Now()
	if job.FinishedAt != nil {
		end = *job.FinishedAt
	}
	snap.ElapsedTime = fmt.Sprintf("%.2f seconds", end.Sub(job.StartedAt).Seconds())
	return snap, true
}

// Cancel stops the session's queued or running job.
func (jm *JobManager) Cancel(sessionID string) error {
	jm.mutex.Lock()
	defer jm.mutex.Unlock()

	job, ok := jm.jobs[sessionID]
	if !ok || !isActive(job.Status) {
		return ErrJobNotFound
	}

	if cancelFunc, exists := jm.cancelFuncs[job.ID]; exists {
		log.Printf("[MANAGER] Cancelling running job %s", job.ID)
		cancelFunc()
		delete(jm.cancelFuncs, job.ID)
	}
	jm.finish(job, StatusFailed, "❌ Processing cancelled.")
	return nil
}

func (jm *JobManager) worker() {
	jm.mutex.Lock()
	jm.activeWorkers++
	workerID := jm.activeWorkers
	jm.mutex.Unlock()

	log.Printf("[MANAGER] Worker %d started", workerID)
	defer func() {
		jm.mutex.Lock()
		jm.activeWorkers--
		jm.mutex.Unlock()
		log.Printf("[MANAGER] Worker %d shutting down", workerID)
	}()

	for {
		select {
		case <-jm.workerCtx.Done():
			return
		case job, ok := <-jm.queue:
			if !ok {
				return
			}
			jm.mutex.RLock()
			current, exists := jm.jobs[job.SessionID]
			queued := exists && current == job && job.Status == StatusQueued
			jm.mutex.RUnlock()

			if !queued {
				log.Printf("[MANAGER] Skipping job %s - no longer queued", job.ID)
				continue
			}
			jm.processJob(job)
		}
	}
}

func (jm *JobManager) startWorkers(count int) {
	for i := 0; i < count; i++ {
		go jm.worker()
	}
}

func (jm *JobManager) processJob(job *Job) {
	ctx, cancel := context.WithCancel(jm.workerCtx)
	defer cancel()

	jm.mutex.Lock()
	if job.Status != StatusQueued {
		jm.mutex.Unlock()
		return
	}
	job.Status = StatusProcessing
	jm.cancelFuncs[job.ID] = cancel
	jm.mutex.Unlock()

	defer func() {
		jm.mutex.Lock()
		delete(jm.cancelFuncs, job.ID)
		jm.mutex.Unlock()
	}()

	log.Printf("[MANAGER] Job %s: Processing %d sources", job.ID, job.Total)
	started := time.Now()

	var sources []knowledge.Source
	for i, src := range job.Sources {
		label := src
		if !core.IsRemote(src) {
			label = filepath.Base(src)
		}
		jm.update(job, func() { job.CurrentFile = label })

		audioPath, err := jm.fetchAudio(ctx, job, i, src)
		if err != nil {
			jm.fail(job, err)
			return
		}
		sources = append(sources, knowledge.Source{Origin: label, AudioPath: audioPath})

		jm.update(job, func() {
			job.Completed++
			remaining := job.Total - job.Completed
			if remaining > 0 {
				avg := time.Since(started) / time.Duration(job.Completed)
				job.EstimatedCompletion = time.Now().Add(avg * time.Duration(remaining)).Format("15:04:05")
			}
		})
	}

	jm.update(job, func() { job.CurrentFile = indexingLabel })
	if err := jm.indexer.IndexAudio(ctx, job.SessionID, sources); err != nil {
		jm.fail(job, err)
		return
	}

	jm.mutex.Lock()
	if job.Status == StatusProcessing {
		jm.finish(job, StatusComplete, "")
		job.TotalTime = fmt.Sprintf("%.2f seconds", time.Since(started).Seconds())
		job.CurrentFile = ""
	}
	jm.mutex.Unlock()

	log.Printf("[MANAGER] Job %s: Complete in %s", job.ID, job.TotalTime)
}

func (jm *JobManager) fetchAudio(ctx context.Context, job *Job, i int, src string) (string, error) {
	if core.IsRemote(src) {
		base := filepath.Join(jm.workDir, fmt.Sprintf("%s_%d", job.SessionID, i))
		return jm.audio.DownloadAudio(ctx, src, base, job.ID)
	}

	ext := filepath.Ext(src)
	if strings.EqualFold(ext, ".mp3") {
		return src, nil
	}
	output := strings.TrimSuffix(src, ext) + ".mp3"
	if err := jm.audio.ConvertToMP3(ctx, src, output, job.ID); err != nil {
		return "", err
	}
	return output, nil
}

func (jm *JobManager) update(job *Job, fn func()) {
	jm.mutex.Lock()
	defer jm.mutex.Unlock()
	fn()
}

func (jm *JobManager) fail(job *Job, err error) {
	jm.mutex.Lock()
	defer jm.mutex.Unlock()

	if job.Status != StatusProcessing {
		return
	}
	log.Printf("[MANAGER] Job %s failed: %v", job.ID, err)
	jm.finish(job, StatusFailed, "❌ Processing failed: "+err.Error())
}

// finish must be called with the mutex held.
func (jm *JobManager) finish(job *Job, status Status, message string) {
	now := time.Now()
	job.Status = status
	job.FinishedAt = &now
	job.Error = message
	job.EstimatedCompletion = ""
}

func (jm *JobManager) Shutdown() {
	log.Printf("[MANAGER] Shutting down job manager...")

	if err := jm.SaveState(); err != nil {
		log.Printf("[MANAGER] Failed to save final state: %v", err)
	}

	jm.workerCancel()
	jm.cancel()

	log.Printf("[MANAGER] Job manager shutdown complete")
}
