package model

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a CrawlJob.
type JobStatus string

// Job statuses.
const (
	// JobPending is the status of a freshly created job that has not started fetching.
	JobPending JobStatus = "pending"
	// JobRunning is the status while the fetch loop is active.
	JobRunning JobStatus = "running"
	// JobCompleted is the status after the frontier drained or the page cap was reached.
	JobCompleted JobStatus = "completed"
	// JobFailed is the status after a setup error. No page was processed.
	JobFailed JobStatus = "failed"
	// JobInterrupted is the status after cancellation. The job is resumable.
	JobInterrupted JobStatus = "interrupted"
)

// transitions lists the statuses reachable from each status.
var transitions = map[JobStatus][]JobStatus{
	JobPending: {JobRunning, JobFailed},
	JobRunning: {JobCompleted, JobFailed, JobInterrupted},
}

// String returns the status as stored.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobInterrupted
}

// CanTransition reports whether moving from s to next is allowed.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseJobStatus converts a stored status string back into a JobStatus.
// Unknown values map to JobPending so that a damaged row never looks finished.
func ParseJobStatus(s string) JobStatus {
	switch JobStatus(s) {
	case JobRunning, JobCompleted, JobFailed, JobInterrupted:
		return JobStatus(s)
	default:
		return JobPending
	}
}

// CrawlJob is one execution of the crawler against a knowledge base.
// It is owned by the crawler for its lifetime and persisted at creation and
// on every status transition.
type CrawlJob struct {
	// ID identifies the job (UUID).
	ID string `json:"id"`

	// KBID is the knowledge base the job writes into.
	KBID string `json:"kb_id"`

	// StartURL is the seed URL, or the origin when the job was seeded from an index.
	StartURL string `json:"start_url"`

	// ConfigSnapshot is the JSON encoding of the settings the job ran with.
	ConfigSnapshot string `json:"config_snapshot"`

	// Status is the current lifecycle state.
	Status JobStatus `json:"status"`

	// PagesFetched counts pages fetched and stored by this job.
	PagesFetched int `json:"pages_fetched"`

	// PagesSkipped counts entries rejected by scope rules or robots.txt.
	PagesSkipped int `json:"pages_skipped"`

	// Errors holds every per-URL failure in the order it was recorded.
	Errors []CrawlError `json:"errors"`

	// StartedAt is set when the job is created.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is set when the job reaches a terminal status.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewCrawlJob creates a pending job.
func NewCrawlJob(id, kbID, startURL string, now time.Time) *CrawlJob {
	return &CrawlJob{
		ID:        id,
		KBID:      kbID,
		StartURL:  startURL,
		Status:    JobPending,
		Errors:    make([]CrawlError, 0),
		StartedAt: now.UTC(),
	}
}

// Transition moves the job to next. Terminal statuses stamp FinishedAt.
func (j *CrawlJob) Transition(next JobStatus, now time.Time) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	j.Status = next
	if next.IsTerminal() {
		finished := now.UTC()
		j.FinishedAt = &finished
	}
	return nil
}

// AddError appends a per-URL failure.
func (j *CrawlJob) AddError(url, reason string, kind ErrorKind) {
	j.Errors = append(j.Errors, CrawlError{URL: url, Reason: reason, Kind: kind})
}

// AddStatusError appends a failure caused by a non-2xx answer.
func (j *CrawlJob) AddStatusError(url, reason string, status int) {
	j.Errors = append(j.Errors, CrawlError{URL: url, Reason: reason, Kind: ErrorKindNetwork, Status: status})
}

// Duration returns the wall time between start and finish, or zero while running.
func (j *CrawlJob) Duration() time.Duration {
	if j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
