package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper periodically reconciles attempts whose check time has passed, so
// overdue transitions happen even when no user request touches the attempt.
type Sweeper struct {
	attempts  AttemptService
	interval  time.Duration
	batchSize int
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewSweeper(attempts AttemptService, interval time.Duration, batchSize int) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Sweeper{attempts: attempts, interval: interval, batchSize: batchSize}
}

// Start launches the sweep loop. Safe to call once.
func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
	log.Info().Dur("interval", s.interval).Msg("Attempt sweeper started")
}

// Stop signals the loop to exit and waits for the in-flight pass to finish.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	log.Info().Msg("Attempt sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.attempts.ReconcileDue(s.batchSize)
			if err != nil {
				log.Error().Err(err).Msg("Sweep pass failed")
				continue
			}
			if n > 0 {
				log.Info().Int("transitioned", n).Msg("Sweep pass reconciled attempts")
			}
		}
	}
}
