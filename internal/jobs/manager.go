package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/vrsandeep/filebox/internal/config"
	"github.com/vrsandeep/filebox/internal/extract"
	"github.com/vrsandeep/filebox/internal/models"
	"github.com/vrsandeep/filebox/internal/websocket"
)

// JobContext is an interface that provides the necessary dependencies for
// background work. The core.App struct implements it.
type JobContext interface {
	DB() *sql.DB
	Config() *config.Config
	WsHub() *websocket.Hub
	JobManager() *JobManager
}

// Publisher delivers job events to whoever subscribed to them.
type Publisher interface {
	Publish(subscriberID string, event models.ProgressEvent)
}

// ExtractFunc unpacks an archive; extract.Extract in production.
type ExtractFunc func(ctx context.Context, archivePath, destDir string, onEntry extract.ProgressFunc) error

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ExtractionJob is the record of one archive being unpacked.
type ExtractionJob struct {
	ID             string     `json:"id"`
	ArchivePath    string     `json:"archive_path"`
	DestinationDir string     `json:"destination_dir"`
	SubscriberID   string     `json:"subscriber_id"`
	Status         Status     `json:"status"`
	Progress       float64    `json:"progress"`
	Message        string     `json:"message"`
	CreatedAt      time.Time  `json:"created_at"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
}

type JobManager struct {
	mu        sync.Mutex
	jobs      map[string]*ExtractionJob
	publisher Publisher
	extract   ExtractFunc
	slots     *semaphore.Weighted // nil means unbounded
	wg        sync.WaitGroup
}

type Option func(*JobManager)

// WithExtractFunc replaces the function used to unpack archives.
func WithExtractFunc(fn ExtractFunc) Option {
	return func(jm *JobManager) { jm.extract = fn }
}

// NewManager creates a JobManager that publishes through publisher and
// runs at most maxConcurrent extractions at a time (0 for no limit).
func NewManager(publisher Publisher, maxConcurrent int64, opts ...Option) *JobManager {
	jm := &JobManager{
		jobs:      make(map[string]*ExtractionJob),
		publisher: publisher,
		extract:   extract.Extract,
	}
	if maxConcurrent > 0 {
		jm.slots = semaphore.NewWeighted(maxConcurrent)
	}
	for _, opt := range opts {
		opt(jm)
	}
	return jm
}

// StartExtraction queues the archive for extraction and returns without
// waiting for it. Progress, completion and failure are reported to
// subscriberID through the publisher, never through the return value.
func (jm *JobManager) StartExtraction(archivePath, destDir, subscriberID string) (*ExtractionJob, error) {
	if archivePath == "" || destDir == "" {
		return nil, errors.New("archive path and destination are required")
	}

	job := &ExtractionJob{
		ID:             uuid.NewString(),
		ArchivePath:    archivePath,
		DestinationDir: destDir,
		SubscriberID:   subscriberID,
		Status:         StatusPending,
		Message:        "Waiting to start...",
		CreatedAt:      time.Now(),
	}

	jm.mu.Lock()
	jm.jobs[job.ID] = job
	snapshot := *job
	jm.mu.Unlock()

	log.Printf("Queued extraction job %s: %s -> %s", job.ID, archivePath, destDir)
	jm.wg.Add(1)
	go jm.run(job)
	return &snapshot, nil
}

func (jm *JobManager) run(job *ExtractionJob) {
	defer jm.wg.Done()

	if jm.slots != nil {
		// Background never cancels, so Acquire cannot fail.
		_ = jm.slots.Acquire(context.Background(), 1)
		defer jm.slots.Release(1)
	}

	jm.mu.Lock()
	job.Status = StatusRunning
	started := time.Now()
	job.StartTime = &started
	job.Message = "Extracting..."
	jm.mu.Unlock()

	log.Printf("Starting extraction job %s", job.ID)
	err := jm.extractSafely(job)
	jm.finish(job, err)
}

// extractSafely runs the extractor, turning a panic into an error.
func (jm *JobManager) extractSafely(job *ExtractionJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction panicked: %v", r)
		}
	}()

	return jm.extract(context.Background(), job.ArchivePath, job.DestinationDir, func(percent float64) {
		jm.mu.Lock()
		job.Progress = percent
		jm.mu.Unlock()
		jm.publisher.Publish(job.SubscriberID, models.ProgressAt(percent))
	})
}

// finish moves the job into its terminal state and emits the single
// terminal event. It is the only place an error becomes an event.
func (jm *JobManager) finish(job *ExtractionJob, err error) {
	jm.mu.Lock()
	if job.Status.terminal() {
		jm.mu.Unlock()
		return
	}
	ended := time.Now()
	job.EndTime = &ended
	var event models.ProgressEvent
	if err != nil {
		job.Status = StatusFailed
		job.Message = err.Error()
		event = models.Failed(err.Error())
	} else {
		job.Status = StatusCompleted
		job.Progress = 100
		job.Message = "Extraction completed successfully."
		event = models.Completed()
	}
	jm.mu.Unlock()

	if err != nil {
		log.Printf("Extraction job %s failed: %v", job.ID, err)
	} else {
		log.Printf("Finished extraction job %s", job.ID)
	}
	jm.publisher.Publish(job.SubscriberID, event)
}

// GetStatus returns a snapshot of every known job, oldest first.
func (jm *JobManager) GetStatus() []*ExtractionJob {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	statuses := make([]*ExtractionJob, 0, len(jm.jobs))
	for _, j := range jm.jobs {
		cp := *j
		statuses = append(statuses, &cp)
	}
	sort.Slice(statuses, func(i, k int) bool {
		return statuses[i].CreatedAt.Before(statuses[k].CreatedAt)
	})
	return statuses
}

// Get returns a snapshot of one job.
func (jm *JobManager) Get(id string) (*ExtractionJob, bool) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	j, ok := jm.jobs[id]
	if !ok {
		return nil, false
	}
	cp := *j
	return &cp, true
}

// Prune forgets finished jobs that ended more than olderThan ago and
// returns how many were removed.
func (jm *JobManager) Prune(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)
	jm.mu.Lock()
	defer jm.mu.Unlock()

	removed := 0
	for id, j := range jm.jobs {
		if j.Status.terminal() && j.EndTime != nil && !j.EndTime.After(cutoff) {
			delete(jm.jobs, id)
			removed++
		}
	}
	return removed
}

// Wait blocks until every started job has finished.
func (jm *JobManager) Wait() {
	jm.wg.Wait()
}
