package service

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"
)

type overdueExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// ExpirySweeper periodically moves passes whose window has elapsed to
// expired, so listings and reports agree with what a scan would decide.
// An interval of 0 disables it.
type ExpirySweeper struct {
	engine   overdueExpirer
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewExpirySweeper(engine overdueExpirer, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		engine:   engine,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs one sweep immediately, then repeats on the interval until ctx
// is cancelled or Stop is called.
func (s *ExpirySweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		log.Info("pass expiry sweeper disabled (interval=0)")
		close(s.done)
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)

	log.Infof("pass expiry sweeper started (interval=%s)", s.interval)
}

// Stop signals the sweeper to exit and waits for it to finish.
func (s *ExpirySweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *ExpirySweeper) loop(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	n, err := s.engine.ExpireOverdue(ctx)
	if err != nil {
		log.Errorf("pass expiry sweep error: %v", err)
		return
	}
	if n > 0 {
		log.Infof("pass expiry sweep: expired %d passes", n)
	}
}
