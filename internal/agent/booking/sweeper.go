package booking

import (
	"context"
	"time"

	logx "github.com/doctor-appointment-agent/server/pkg/logger"
)

// Sweeper periodically declines confirmations that outlived their TTL.
type Sweeper struct {
	wf       *Workflow
	interval time.Duration
}

func NewSweeper(wf *Workflow, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{wf: wf, interval: interval}
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	logx.Info().Dur("interval", s.interval).Msg("booking sweeper started")
	for {
		select {
		case <-ctx.Done():
			logx.Info().Msg("booking sweeper stopped")
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.wf.ExpirePending(ctx, s.wf.now())
	if err != nil {
		logx.Error().Err(err).Msg("failed to expire pending bookings")
		return
	}
	if n > 0 {
		logx.Info().Int("expired", n).Msg("expired pending bookings")
	}
}
