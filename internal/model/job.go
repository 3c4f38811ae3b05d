package model

import "time"

// Job tracks one bulk notification batch from creation to its terminal state.
type Job struct {
	ID              string     `json:"id"`
	Channel         Channel    `json:"channel"`
	Status          JobStatus  `json:"status"`
	Total           int        `json:"total"`
	SuccessCount    int        `json:"successCount"`
	FailedCount     int        `json:"failedCount"`
	Errors          []JobError `json:"errors"`
	CancelRequested bool       `json:"cancelRequested"`
	CreatedAt       time.Time  `json:"createdAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// JobError records why one recipient could not be notified.
type JobError struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// Attempted returns how many recipients have a recorded outcome.
func (j *Job) Attempted() int {
	return j.SuccessCount + j.FailedCount
}

// ProgressPercent is floor(100 * attempted / total).
func (j *Job) ProgressPercent() int {
	if j.Total <= 0 {
		return 0
	}
	return 100 * j.Attempted() / j.Total
}

// NewJobProgress builds the polling snapshot for a job. The caller must pass
// a job copy that was read consistently (one store read), so the counters and
// error list in the snapshot always agree with each other.
func NewJobProgress(job Job, now time.Time) JobProgress {
	p := JobProgress{
		Status:   job.Status,
		Progress: job.ProgressPercent(),
		Total:    job.Total,
		Success:  job.SuccessCount,
		Failed:   job.FailedCount,
		Errors:   job.Errors,
	}
	if p.Errors == nil {
		p.Errors = []JobError{}
	}

	// Throughput-based estimate, only meaningful mid-flight.
	attempted := job.Attempted()
	if job.Status == JobStatusProcessing && attempted > 0 && attempted < job.Total && job.StartedAt != nil {
		elapsed := now.Sub(*job.StartedAt)
		if elapsed > 0 {
			perItem := elapsed / time.Duration(attempted)
			remaining := perItem * time.Duration(job.Total-attempted)
			secs := int64(remaining.Round(time.Second) / time.Second)
			p.EstimatedTimeRemaining = &secs
		}
	}
	return p
}
