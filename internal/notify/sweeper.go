package notify

import (
	"context"
	"time"

	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/metrics"
	"go.uber.org/zap"
)

// Sweeper periodically removes old, already-read notifications
type Sweeper struct {
	service  *Service
	maxAge   time.Duration
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewSweeper creates a retention sweeper
func NewSweeper(service *Service, maxAge, interval time.Duration) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		service:  service,
		maxAge:   maxAge,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the periodic sweep
func (s *Sweeper) Start() {
	logger.Log.Info("Starting notification sweeper",
		zap.Duration("max_age", s.maxAge),
		zap.Duration("interval", s.interval),
	)
	go s.run()
}

// Stop stops the sweeper
func (s *Sweeper) Stop() {
	s.cancel()
}

func (s *Sweeper) run() {
	// Run immediately on startup
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep() {
	removed, err := s.service.CleanupOld(s.ctx, s.maxAge)
	if err != nil {
		logger.Log.Error("Notification sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		metrics.RecordNotificationsSwept(removed)
		logger.Log.Info("Notification sweep completed",
			zap.Int64("removed", removed),
		)
	}
}
