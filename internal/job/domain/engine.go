package domain

import (
	"context"
	"errors"
)

var ErrEngineNotFound = errors.New("engine_not_found")

// SwapResult is what an engine produced for a completed job.
type SwapResult struct {
	OutputPath    string
	FileSizeBytes int64
	Metadata      map[string]any
}

// Engine executes a face swap. Implementations must honor ctx cancellation;
// the coordinator bounds every dispatch with a per-type timeout.
type Engine interface {
	Swap(ctx context.Context, job *FaceSwapJob) (*SwapResult, error)
}
