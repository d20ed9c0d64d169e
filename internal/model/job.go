package model

import "time"

// JobStatus represents the lifecycle state of a background analysis job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobError     JobStatus = "error"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobError
}

// Job is a web-submitted analysis and its progress.
type Job struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename,omitempty"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Result    *Summary  `json:"result"`
	Error     *string   `json:"error"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobFilter narrows job history listings.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}
