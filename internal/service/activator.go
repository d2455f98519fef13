package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultActivatorInterval = 10 * time.Minute

// Activator periodically sweeps pending relationships and activates the ones
// whose confidence has crossed the threshold.
type Activator struct {
	discovery *Discovery
	logger    *zap.Logger

	interval  time.Duration
	threshold float64
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewActivator(discovery *Discovery, logger *zap.Logger) *Activator {
	return &Activator{
		discovery: discovery,
		logger:    logger,
		interval:  defaultActivatorInterval,
		stopCh:    make(chan struct{}),
	}
}

func (s *Activator) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *Activator) SetThreshold(t float64) {
	s.threshold = t
}

// Start runs the sweep on a periodic schedule in a background goroutine.
func (s *Activator) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("relationship activator started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.discovery.AutoActivate(ctx, s.threshold)
				cancel()
			case <-s.stopCh:
				s.logger.Info("relationship activator stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweep.
func (s *Activator) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}
