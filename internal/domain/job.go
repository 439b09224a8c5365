package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is final. Terminal jobs never change
// again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job encapsulates the lifecycle of one video generation task. Exactly one of
// VideoURL and Error is populated once the job reaches a terminal status.
type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	VideoURL  string    `json:"video_url,omitempty"`
	Prompt    string    `json:"prompt"`
	Style     string    `json:"style"`
	Model     string    `json:"model"`
	Ratio     string    `json:"ratio"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
	Error     string    `json:"error,omitempty"`

	// ImageRefs is fixed at creation and never mutated afterwards.
	ImageRefs []string `json:"-"`
}
