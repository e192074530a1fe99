package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/swapforge/swapforge/internal/job/domain"
	"go.uber.org/zap"
)

// FaceFusion runs the face-swap pipeline as a headless subprocess. The
// caller's context bounds the run; on timeout the process is killed and the
// job settles as FAILED.
type FaceFusion struct {
	log        *zap.Logger
	python     string
	enginePath string
	outputDir  string
}

type FaceFusionConfig struct {
	Python     string
	EnginePath string
	OutputDir  string
}

func NewFaceFusion(log *zap.Logger, cfg FaceFusionConfig) *FaceFusion {
	python := cfg.Python
	if python == "" {
		python = "python3"
	}
	return &FaceFusion{
		log:        log.Named("engine.facefusion"),
		python:     python,
		enginePath: cfg.EnginePath,
		outputDir:  cfg.OutputDir,
	}
}

// Available reports whether the pipeline script is installed.
func (f *FaceFusion) Available() bool {
	_, err := os.Stat(filepath.Join(f.enginePath, "facefusion.py"))
	return err == nil
}

func (f *FaceFusion) Swap(ctx context.Context, job *domain.FaceSwapJob) (*domain.SwapResult, error) {
	if !f.Available() {
		return nil, errors.New("face swap engine not available")
	}
	if job.SourceFilePath == "" || job.TargetFilePath == "" {
		return nil, errors.New("face swap requires both a source face and a target file")
	}

	outputPath := filepath.Join(f.outputDir, outputName(job))

	cmd := exec.CommandContext(ctx, f.python,
		filepath.Join(f.enginePath, "facefusion.py"),
		"headless-run",
		"--source-paths", job.SourceFilePath,
		"--target-path", job.TargetFilePath,
		"--output-path", outputPath,
		"--processors", "face_swapper",
		"--execution-providers", "cpu",
	)
	cmd.Dir = f.enginePath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	f.log.Info("running face swap",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.JobType)),
	)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("face swap processing timed out: %w", ctx.Err())
		}
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = strings.TrimSpace(stdout.String())
		}
		if message == "" {
			message = err.Error()
		}
		return nil, fmt.Errorf("face swap failed: %s", message)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, errors.New("face swap produced no output")
	}

	return &domain.SwapResult{
		OutputPath:    outputPath,
		FileSizeBytes: info.Size(),
		Metadata: map[string]any{
			"file_size_bytes":   info.Size(),
			"processing_method": processingMethod(job.JobType),
		},
	}, nil
}

func outputName(job *domain.FaceSwapJob) string {
	suffix := uuid.NewString()[:8]
	if job.JobType == domain.JobTypeVideo {
		return fmt.Sprintf("faceswap_video_%s_%s.mp4", job.ID, suffix)
	}
	return fmt.Sprintf("faceswap_%s_%s.png", job.ID, suffix)
}

func processingMethod(jobType domain.JobType) string {
	if jobType == domain.JobTypeVideo {
		return "facefusion_cpu_video"
	}
	return "facefusion_cpu"
}

var _ domain.Engine = (*FaceFusion)(nil)
