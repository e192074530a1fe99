package job

import (
	"github.com/swapforge/swapforge/internal/config"
	"github.com/swapforge/swapforge/internal/job/domain"
	"github.com/swapforge/swapforge/internal/job/engine"
	"github.com/swapforge/swapforge/internal/job/repository"
	"github.com/swapforge/swapforge/internal/job/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("job.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config, log *zap.Logger) *engine.Registry {
		facefusion := engine.NewFaceFusion(log, engine.FaceFusionConfig{
			EnginePath: cfg.EnginePath,
			OutputDir:  cfg.OutputDir,
		})
		registry := engine.NewRegistry()
		registry.Register(domain.JobTypeImage, facefusion)
		registry.Register(domain.JobTypeVideo, facefusion)
		return registry
	}),
	fx.Provide(service.New),
)
