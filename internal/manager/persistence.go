package manager

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// StateFile represents the persisted job manager state
type StateFile struct {
	Jobs    map[string]*Job `json:"jobs"`
	SavedAt time.Time       `json:"saved_at"`
	Version string          `json:"version"`
}

const StateVersion = "1.0"

const interruptedMessage = "❌ Processing interrupted by a server restart."

func (jm *JobManager) GetStateFilePath() string {
	return filepath.Join(jm.stateDir, ".vidtutor_jobs.json")
}

// SaveState persists all jobs to disk
func (jm *JobManager) SaveState() error {
	jm.mutex.RLock()
	stateFile := StateFile{
		Jobs:    make(map[string]*Job, len(jm.jobs)),
		SavedAt: time.Now(),
		Version: StateVersion,
	}
	for session, job := range jm.jobs {
		copied := *job
		stateFile.Jobs[session] = &copied
	}
	jm.mutex.RUnlock()

	data, err := json.MarshalIndent(stateFile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(jm.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	stateFilePath := jm.GetStateFilePath()
	tempPath := stateFilePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	if err := os.Rename(tempPath, stateFilePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	log.Printf("[MANAGER] State saved with %d jobs", len(stateFile.Jobs))
	return nil
}

// LoadState restores jobs from disk. Jobs that were queued or running when
// the server stopped are marked failed.
func (jm *JobManager) LoadState() error {
	stateFilePath := jm.GetStateFilePath()

	data, err := os.ReadFile(stateFilePath)
	if os.IsNotExist(err) {
		log.Printf("[MANAGER] No state file found, starting fresh")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var stateFile StateFile
	if err := json.Unmarshal(data, &stateFile); err != nil {
		return fmt.Errorf("failed to unmarshal state file: %w", err)
	}

	if stateFile.Version != StateVersion {
		log.Printf("[MANAGER] State file version mismatch (found %s, expected %s), starting fresh",
			stateFile.Version, StateVersion)
		return nil
	}

	jm.mutex.Lock()
	defer jm.mutex.Unlock()

	restoredCount := 0
	for session, job := range stateFile.Jobs {
		if !validateRestoredJob(session, job) {
			log.Printf("[MANAGER] Skipping invalid job during restoration for session %s", session)
			continue
		}
		if isActive(job.Status) {
			jm.finish(job, StatusFailed, interruptedMessage)
			job.CurrentFile = ""
		}
		jm.jobs[session] = job
		restoredCount++
	}

	log.Printf("[MANAGER] State restored: %d jobs loaded (saved at %s)",
		restoredCount, stateFile.SavedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func validateRestoredJob(session string, job *Job) bool {
	if job == nil {
		return false
	}
	return job.ID != "" && job.SessionID == session && job.Total > 0
}

// StartPeriodicStateSave begins automatically saving state at regular intervals
func (jm *JobManager) StartPeriodicStateSave() {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-jm.ctx.Done():
				log.Printf("[MANAGER] Stopping periodic state saving")
				return
			case <-ticker.C:
				if err := jm.SaveState(); err != nil {
					log.Printf("[MANAGER] Failed to save state: %v", err)
				}
			}
		}
	}()
}
