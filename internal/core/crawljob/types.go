package crawljob

// Kind selects which crawl operation a job runs.
type Kind string

const (
	KindSearch   Kind = "search"
	KindQuestion Kind = "question"
	KindCreator  Kind = "creator"
	KindComments Kind = "comments"
)

// Request is the submit payload for one crawl job.
type Request struct {
	Kind Kind `json:"kind"`

	// KindSearch
	Keyword      string `json:"keyword,omitempty"`
	Sort         string `json:"sort,omitempty"`
	TimeInterval string `json:"time_interval,omitempty"`

	// KindQuestion
	QuestionID string `json:"question_id,omitempty"`
	Order      string `json:"order,omitempty"`

	// KindCreator
	CreatorToken string `json:"creator_token,omitempty"`

	// KindComments
	ContentID   string `json:"content_id,omitempty"`
	ContentType string `json:"content_type,omitempty"`

	MaxItems int `json:"max_items,omitempty"`
}

type SubmitResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type taskPayload struct {
	JobID   string  `json:"job_id"`
	Request Request `json:"request"`
}
