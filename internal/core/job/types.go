package job

import "encoding/json"

// Record is the persisted state of one crawl job.
type Record struct {
	JobID  string `json:"job_id"`
	Kind   string `json:"kind"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`

	Pages    int               `json:"pages"`
	Contents []json.RawMessage `json:"contents,omitempty"`
	Comments []json.RawMessage `json:"comments,omitempty"`
}

// Status for internal job tracking
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)
