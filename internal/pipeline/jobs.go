package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/mdxprep/internal/doctree"
	"github.com/dgallion1/mdxprep/internal/tagfix"
	"github.com/google/uuid"
)

// JobStatus represents the state of a batch cleaning job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
)

// Document is one uploaded file.
type Document struct {
	Name string
	Text string
}

// DocumentResult is the cleaned form of one Document.
type DocumentResult struct {
	Name        string               `json:"name"`
	Text        string               `json:"text,omitempty"`
	Changed     bool                 `json:"changed"`
	ContentHash string               `json:"content_hash,omitempty"`
	Diagnostics []doctree.Diagnostic `json:"diagnostics"`
	Error       string               `json:"error,omitempty"`
}

// Job tracks the state of a batch of documents cleaned together.
type Job struct {
	mu sync.Mutex

	ID     string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	policy  tagfix.Policy
	opts    []Option
	docs    []Document
	results []DocumentResult
	errors  []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalDocuments     int      `json:"total_documents"`
	DocumentsProcessed int      `json:"documents_processed"`
	DocumentsChanged   int      `json:"documents_changed"`
	Errors             []string `json:"errors"`
}

// NewJob returns a queued job for docs.
func NewJob(docs []Document, policy tagfix.Policy, opts ...Option) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Progress:  Progress{TotalDocuments: len(docs)},
		CreatedAt: now,
		UpdatedAt: now,
		policy:    policy,
		opts:      opts,
		docs:      docs,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Documents returns the uploaded documents.
func (j *Job) Documents() []Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.docs
}

// SetResult stores the result of document i and advances progress.
func (j *Job) SetResult(i int, r DocumentResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.results == nil {
		j.results = make([]DocumentResult, len(j.docs))
	}
	j.results[i] = r
	j.Progress.DocumentsProcessed++
	if r.Changed {
		j.Progress.DocumentsChanged++
	}
	j.UpdatedAt = time.Now()
}

// Results returns a copy of the per-document results in upload order.
func (j *Job) Results() []DocumentResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]DocumentResult(nil), j.results...)
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:     j.ID,
		Status: j.Status,
		Phase:  j.Phase,
		Progress: Progress{
			TotalDocuments:     j.Progress.TotalDocuments,
			DocumentsProcessed: j.Progress.DocumentsProcessed,
			DocumentsChanged:   j.Progress.DocumentsChanged,
			Errors:             append([]string{}, errs...),
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
