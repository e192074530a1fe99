// Package sweeper periodically expires overdue credit lots and invites.
// Sweeps are idempotent bulk updates, so overlapping runs are safe; the redis
// lock only avoids duplicate work across replicas.
package sweeper

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/swapforge/swapforge/internal/clock"
	"github.com/swapforge/swapforge/internal/config"
	creditdomain "github.com/swapforge/swapforge/internal/credit/domain"
	invitedomain "github.com/swapforge/swapforge/internal/invite/domain"
	"github.com/swapforge/swapforge/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultInterval = time.Hour
	lockKey         = "sweeper:lock"
	lockTTL         = 5 * time.Minute
)

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Clock     clock.Clock
	CreditSvc creditdomain.Service
	InviteSvc invitedomain.Service
	Client    *redis.Client `optional:"true"`
}

// Result reports what one sweep expired.
type Result struct {
	CreditsExpired int64 `json:"credits_expired"`
	InvitesExpired int64 `json:"invites_expired"`
}

type Sweeper struct {
	log       *zap.Logger
	clock     clock.Clock
	interval  time.Duration
	creditSvc creditdomain.Service
	inviteSvc invitedomain.Service
	locker    *ratelimit.Locker

	stop chan struct{}
	done chan struct{}
}

func New(p Params) *Sweeper {
	interval := defaultInterval
	if parsed, err := time.ParseDuration(p.Cfg.SweepInterval); err == nil && parsed > 0 {
		interval = parsed
	}
	return &Sweeper{
		log:       p.Log.Named("sweeper"),
		clock:     p.Clock,
		interval:  interval,
		creditSvc: p.CreditSvc,
		inviteSvc: p.InviteSvc,
		locker:    ratelimit.NewLocker(p.Client),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// RunOnce expires overdue credits and invites. Both sweeps run even when one
// fails; errors are joined.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	var result Result
	var errs []error

	credits, err := s.creditSvc.ExpireOldCredits(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	result.CreditsExpired = credits

	invites, err := s.inviteSvc.ExpireOldInvites(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	result.InvitesExpired = invites

	if len(errs) > 0 {
		return result, errors.Join(errs...)
	}
	return result, nil
}

// RunForever loops until Stop. Each tick takes the replica lock when redis is
// configured; without redis every replica sweeps, which is safe but wasteful.
func (s *Sweeper) RunForever() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-s.stop:
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) Stop(ctx context.Context) error {
	close(s.stop)
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), lockTTL)
	defer cancel()

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, lockKey, lockTTL)
		if err != nil {
			s.log.Warn("sweeper lock unavailable, sweeping anyway", zap.Error(err))
		} else if !ok {
			s.log.Debug("another replica holds the sweep lock, skipping")
			return
		} else {
			defer func() {
				if err := s.locker.Release(ctx, lockKey, token); err != nil {
					s.log.Warn("failed to release sweep lock", zap.Error(err))
				}
			}()
		}
	}

	result, err := s.RunOnce(ctx)
	if err != nil {
		s.log.Error("sweep failed", zap.Error(err))
		return
	}
	if result.CreditsExpired > 0 || result.InvitesExpired > 0 {
		s.log.Info("sweep finished",
			zap.Int64("credits_expired", result.CreditsExpired),
			zap.Int64("invites_expired", result.InvitesExpired),
		)
	}
}

// Register hooks the sweep loop into the application lifecycle.
func Register(lc fx.Lifecycle, s *Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			go s.RunForever()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}

var Module = fx.Module("sweeper",
	fx.Provide(New),
	fx.Invoke(Register),
)
