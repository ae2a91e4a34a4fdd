package history

import "time"

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Record is one finished extraction attempt.
type Record struct {
	ID           string        `json:"id"`
	Operation    string        `json:"operation"`
	URL          string        `json:"url"`
	Protocol     string        `json:"protocol"`
	Status       string        `json:"status"`
	ErrorKind    string        `json:"error_kind,omitempty"`
	Message      string        `json:"message,omitempty"`
	Filename     string        `json:"filename,omitempty"`
	Size         int64         `json:"size"`
	Elapsed      time.Duration `json:"elapsed"`
	FallbackUsed bool          `json:"fallback_used"`
	CreatedAt    time.Time     `json:"created_at"`
}

// RecordQuery filters journal reads. Empty strings mean no filter.
type RecordQuery struct {
	Operation string
	Status    string
	Limit     *int // maximum number of records to return (nil means no limit)
	Offset    *int // number of records to skip (nil means no offset)
}
