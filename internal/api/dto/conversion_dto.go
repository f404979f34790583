package dto

import (
	"time"

	"github.com/fioreale/PaperFlow/internal/jobs"
)

// ConvertRequest is the body of POST /convert and /convert-sync.
type ConvertRequest struct {
	URL             string `json:"url" binding:"required"`
	Title           string `json:"title"`
	UploadToDropbox *bool  `json:"upload_to_dropbox"`
}

// Upload resolves the optional upload flag; it defaults to true when
// the field is omitted.
func (r *ConvertRequest) Upload() bool {
	if r.UploadToDropbox == nil {
		return true
	}
	return *r.UploadToDropbox
}

// ConvertResponse acknowledges an accepted conversion job.
type ConvertResponse struct {
	JobID     string      `json:"job_id"`
	Status    jobs.Status `json:"status"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
}

// ListJobsResponse is the diagnostics listing of all tracked jobs.
type ListJobsResponse struct {
	Jobs  map[string]jobs.Job `json:"jobs"`
	Count int                 `json:"count"`
}
