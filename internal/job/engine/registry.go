package engine

import (
	"github.com/swapforge/swapforge/internal/job/domain"
)

// Registry maps job types to the engine that processes them.
type Registry struct {
	engines map[domain.JobType]domain.Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: map[domain.JobType]domain.Engine{}}
}

func (r *Registry) Register(jobType domain.JobType, engine domain.Engine) {
	if r == nil || engine == nil {
		return
	}
	r.engines[jobType] = engine
}

func (r *Registry) Engine(jobType domain.JobType) (domain.Engine, error) {
	if r == nil {
		return nil, domain.ErrEngineNotFound
	}
	engine, ok := r.engines[jobType]
	if !ok {
		return nil, domain.ErrEngineNotFound
	}
	return engine, nil
}
