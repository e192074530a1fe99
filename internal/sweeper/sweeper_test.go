package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/swapforge/swapforge/internal/clock"
	"github.com/swapforge/swapforge/internal/config"
	creditdomain "github.com/swapforge/swapforge/internal/credit/domain"
	invitedomain "github.com/swapforge/swapforge/internal/invite/domain"
	"go.uber.org/zap"
)

type creditSvcStub struct {
	creditdomain.Service
	expired int64
	err     error
}

func (s *creditSvcStub) ExpireOldCredits(ctx context.Context) (int64, error) {
	return s.expired, s.err
}

type inviteSvcStub struct {
	invitedomain.Service
	expired int64
	err     error
}

func (s *inviteSvcStub) ExpireOldInvites(ctx context.Context) (int64, error) {
	return s.expired, s.err
}

func newTestSweeper(creditSvc creditdomain.Service, inviteSvc invitedomain.Service, interval string) *Sweeper {
	return New(Params{
		Cfg:       config.Config{SweepInterval: interval},
		Log:       zap.NewNop(),
		Clock:     clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		CreditSvc: creditSvc,
		InviteSvc: inviteSvc,
	})
}

func TestRunOnceReportsBothCounts(t *testing.T) {
	s := newTestSweeper(&creditSvcStub{expired: 3}, &inviteSvcStub{expired: 2}, "1h")

	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), result.CreditsExpired)
	require.Equal(t, int64(2), result.InvitesExpired)
}

func TestRunOnceContinuesPastCreditFailure(t *testing.T) {
	creditErr := errors.New("credit sweep failed")
	s := newTestSweeper(&creditSvcStub{err: creditErr}, &inviteSvcStub{expired: 4}, "1h")

	result, err := s.RunOnce(context.Background())
	require.ErrorIs(t, err, creditErr)
	require.Equal(t, int64(0), result.CreditsExpired)
	require.Equal(t, int64(4), result.InvitesExpired)
}

func TestRunOnceJoinsErrors(t *testing.T) {
	creditErr := errors.New("credit sweep failed")
	inviteErr := errors.New("invite sweep failed")
	s := newTestSweeper(&creditSvcStub{err: creditErr}, &inviteSvcStub{err: inviteErr}, "1h")

	_, err := s.RunOnce(context.Background())
	require.ErrorIs(t, err, creditErr)
	require.ErrorIs(t, err, inviteErr)
}

func TestIntervalFallsBackToDefault(t *testing.T) {
	s := newTestSweeper(&creditSvcStub{}, &inviteSvcStub{}, "not-a-duration")
	require.Equal(t, defaultInterval, s.interval)

	s = newTestSweeper(&creditSvcStub{}, &inviteSvcStub{}, "15m")
	require.Equal(t, 15*time.Minute, s.interval)
}
