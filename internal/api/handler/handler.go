package handler

import (
	"context"
	"log/slog"

	"github.com/fioreale/PaperFlow/internal/jobs"
)

// Runner abstracts the pipeline for the HTTP layer so handlers can be
// tested without spinning up a browser.
type Runner interface {
	Run(ctx context.Context, job jobs.Job) error
	Start(job jobs.Job)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger *slog.Logger
	Store  *jobs.Store
	Runner Runner
}

// ConversionHandler handles conversion-related HTTP requests
type ConversionHandler struct {
	logger *slog.Logger
	store  *jobs.Store
	runner Runner
}

// NewConversionHandler creates a new ConversionHandler instance
func NewConversionHandler(deps *Dependencies) *ConversionHandler {
	return &ConversionHandler{
		logger: deps.Logger,
		store:  deps.Store,
		runner: deps.Runner,
	}
}
