package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fioreale/PaperFlow/internal/extractor"
	"github.com/fioreale/PaperFlow/internal/jobs"
)

var (
	// ErrJobInFlight is returned when a pipeline run is requested for a
	// job id that is already being processed.
	ErrJobInFlight = errors.New("pipeline already running for this job")

	// ErrJobAlreadyTerminal is returned when a pipeline run is requested
	// for a job that is past pending. Transitions are forward-only, so a
	// re-run would drag a terminal job back into processing.
	ErrJobAlreadyTerminal = errors.New("job already reached a terminal state")
)

// Extractor fetches and parses an article from a URL.
type Extractor interface {
	ExtractArticle(ctx context.Context, url string) (*extractor.Article, error)
}

// Renderer turns an article into a local PDF artifact.
type Renderer interface {
	GeneratePDF(ctx context.Context, article *extractor.Article, outputPath string) (string, error)
	OutputPathFor(jobID, title string) string
}

// Uploader delivers a local file to remote storage.
type Uploader interface {
	IsConfigured() bool
	EnsureFolder(ctx context.Context) error
	UploadFile(ctx context.Context, localPath, remoteName string) (string, error)
}

// Event describes a terminal job transition for downstream consumers.
type Event struct {
	Type        string      `json:"type"`
	JobID       string      `json:"job_id"`
	URL         string      `json:"url"`
	Status      jobs.Status `json:"status"`
	PDFPath     string      `json:"pdf_path,omitempty"`
	DropboxPath string      `json:"dropbox_path,omitempty"`
	Error       string      `json:"error,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// Notifier publishes job lifecycle events. Delivery is best-effort and
// never affects the job outcome.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// Runner drives a job through extract -> render -> upload, persisting
// every transition through the job store. It guarantees at most one
// concurrent pipeline execution per job id and bounds the number of
// background executions so render capacity is not exhausted.
type Runner struct {
	store     *jobs.Store
	extractor Extractor
	renderer  Renderer
	uploader  Uploader
	notifier  Notifier // optional
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	sem      chan struct{}
}

// NewRunner creates a pipeline runner. maxConcurrent bounds background
// executions started via Start; synchronous Run calls are not queued.
func NewRunner(
	store *jobs.Store,
	ex Extractor,
	rd Renderer,
	up Uploader,
	notifier Notifier,
	maxConcurrent int,
	logger *slog.Logger,
) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Runner{
		store:     store,
		extractor: ex,
		renderer:  rd,
		uploader:  up,
		notifier:  notifier,
		logger:    logger,
		inflight:  make(map[string]struct{}),
		sem:       make(chan struct{}, maxConcurrent),
	}
}

// Run executes the full pipeline for a job and blocks until it reaches
// a terminal state. A second Run for the same id while the first is
// still going returns ErrJobInFlight without touching the job.
// Fatal step errors are recorded on the job and returned to the caller;
// the job record stays the source of truth either way.
func (r *Runner) Run(ctx context.Context, job jobs.Job) error {
	if !r.acquire(job.ID) {
		r.logger.Warn("Duplicate pipeline submission rejected",
			slog.String("job_id", job.ID),
		)
		return ErrJobInFlight
	}
	defer r.release(job.ID)

	// Only a pending job may start. The caller may be holding a stale
	// snapshot, so the store record decides.
	current, err := r.store.Get(job.ID)
	if err != nil {
		return err
	}
	if current.Status != jobs.StatusPending {
		r.logger.Warn("Pipeline submission for non-pending job rejected",
			slog.String("job_id", job.ID),
			slog.String("status", string(current.Status)),
		)
		return ErrJobAlreadyTerminal
	}

	return r.run(ctx, job)
}

// Start launches the pipeline in the background and returns immediately.
// The execution waits for a concurrency slot before it begins; failures
// are logged since there is no caller left to return them to.
func (r *Runner) Start(job jobs.Job) {
	go func() {
		r.sem <- struct{}{}
		defer func() { <-r.sem }()

		err := r.Run(context.Background(), job)
		if err != nil && !errors.Is(err, ErrJobInFlight) && !errors.Is(err, ErrJobAlreadyTerminal) {
			r.logger.Error("Background conversion failed",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (r *Runner) run(ctx context.Context, job jobs.Job) error {
	r.logger.Info("Starting conversion pipeline",
		slog.String("job_id", job.ID),
		slog.String("url", job.URL),
	)
	r.store.Update(job.ID, jobs.StatusProcessing, jobs.Patch{})

	// Step 1: extract article content.
	article, err := r.extractor.ExtractArticle(ctx, job.URL)
	if err != nil {
		return r.fail(ctx, job.ID, err)
	}

	// Step 2: reconcile title. An explicit user-supplied title wins over
	// whatever was extracted.
	title := job.Title
	if title == "" {
		title = article.Title
		r.store.Update(job.ID, jobs.StatusProcessing, jobs.Patch{Title: jobs.String(title)})
	}

	// Step 3: render the PDF.
	outputPath := r.renderer.OutputPathFor(job.ID, title)
	pdfPath, err := r.renderer.GeneratePDF(ctx, article, outputPath)
	if err != nil {
		return r.fail(ctx, job.ID, err)
	}
	r.store.Update(job.ID, jobs.StatusProcessing, jobs.Patch{PDFPath: jobs.String(pdfPath)})

	// Step 4: upload, only when requested and configured. Upload failure
	// never downgrades a successful render; the job still completes with
	// an empty dropbox path.
	var dropboxPath string
	if job.UploadRequested && r.uploader.IsConfigured() {
		dropboxPath, err = r.upload(ctx, pdfPath)
		if err != nil {
			r.logger.Warn("Dropbox upload failed, keeping local PDF",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
			dropboxPath = ""
		}
	}

	// Step 5: finalize. The pdf path was persisted right after the render
	// step; only the optional remote path is new here.
	patch := jobs.Patch{}
	if dropboxPath != "" {
		patch.DropboxPath = jobs.String(dropboxPath)
	}
	r.store.Update(job.ID, jobs.StatusCompleted, patch)

	r.logger.Info("Conversion pipeline completed",
		slog.String("job_id", job.ID),
		slog.String("pdf_path", pdfPath),
		slog.Bool("uploaded", dropboxPath != ""),
	)
	r.notify(ctx, job.ID)
	return nil
}

func (r *Runner) upload(ctx context.Context, pdfPath string) (string, error) {
	if err := r.uploader.EnsureFolder(ctx); err != nil {
		return "", err
	}
	return r.uploader.UploadFile(ctx, pdfPath, "")
}

// fail records the error on the job and propagates it to the caller.
func (r *Runner) fail(ctx context.Context, jobID string, cause error) error {
	r.store.Update(jobID, jobs.StatusFailed, jobs.Patch{Error: jobs.String(cause.Error())})
	r.notify(ctx, jobID)
	return cause
}

// notify publishes the terminal snapshot, best-effort.
func (r *Runner) notify(ctx context.Context, jobID string) {
	if r.notifier == nil {
		return
	}
	job, err := r.store.Get(jobID)
	if err != nil {
		return
	}

	eventType := "job.completed"
	if job.Status == jobs.StatusFailed {
		eventType = "job.failed"
	}
	event := Event{
		Type:        eventType,
		JobID:       job.ID,
		URL:         job.URL,
		Status:      job.Status,
		PDFPath:     job.PDFPath,
		DropboxPath: job.DropboxPath,
		Error:       job.Error,
		OccurredAt:  time.Now().UTC(),
	}
	if err := r.notifier.Publish(ctx, event); err != nil {
		r.logger.Warn("Failed to publish job event",
			slog.String("job_id", jobID),
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Runner) acquire(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, running := r.inflight[jobID]; running {
		return false
	}
	r.inflight[jobID] = struct{}{}
	return true
}

func (r *Runner) release(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, jobID)
}
