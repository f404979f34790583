package jobs

import (
	"errors"
	"time"
)

// Status represents the lifecycle state of a conversion job.
// The values are stable wire strings; transitions are forward-only:
// pending -> processing -> completed | failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	// ErrJobNotFound is returned when a job id is not present in the store
	ErrJobNotFound = errors.New("job not found")
)

// Job represents a single article-to-PDF conversion request and its
// current state. Jobs are created and mutated exclusively through the
// Store; everything handed out of the store is a copy.
type Job struct {
	ID              string     `json:"job_id"`
	URL             string     `json:"url"`
	Title           string     `json:"title,omitempty"`
	UploadRequested bool       `json:"upload_to_dropbox"`
	Status          Status     `json:"status"`
	PDFPath         string     `json:"pdf_path,omitempty"`
	DropboxPath     string     `json:"dropbox_path,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Patch enumerates the optional fields of an update. A nil pointer means
// "leave the current value alone", so a status-only update never clears
// previously set fields.
type Patch struct {
	Title       *string
	Error       *string
	PDFPath     *string
	DropboxPath *string
}

// String is a convenience for building patches from literals.
func String(s string) *string { return &s }
