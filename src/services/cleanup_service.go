package services

import (
	"context"
	"sync"
	"time"

	"github.com/khabaroff/staff-cards/src/logging"
)

// TokenPurger deletes identity tokens that can no longer be redeemed
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// CleanupService periodically purges expired invite and reset tokens
type CleanupService struct {
	purger   TokenPurger
	enabled  bool
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(purger TokenPurger, enabled bool) *CleanupService {
	return &CleanupService{
		purger:   purger,
		enabled:  enabled,
		interval: 24 * time.Hour, // Run daily
		done:     make(chan struct{}),
	}
}

// Start starts the cleanup loop
func (cs *CleanupService) Start(ctx context.Context) {
	logger := logging.NewLogger("cleanup")
	if !cs.enabled {
		logger.Info().Msg("cleanup service is disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(cs.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("cleanup service stopped")
				return
			case <-cs.done:
				logger.Info().Msg("cleanup service stopped")
				return
			case <-ticker.C:
				cs.RunOnce(ctx)
			}
		}
	}()

	logger.Info().Dur("interval", cs.interval).Msg("cleanup service started")
}

// Stop stops the cleanup loop. It is safe to call more than once.
func (cs *CleanupService) Stop() {
	cs.stopOnce.Do(func() { close(cs.done) })
}

// RunOnce performs a single purge and returns the number of tokens removed
func (cs *CleanupService) RunOnce(ctx context.Context) int64 {
	logger := logging.NewLogger("cleanup")
	n, err := cs.purger.PurgeExpiredTokens(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("token cleanup failed")
		return 0
	}
	if n > 0 {
		logger.Info().Int64("tokens_deleted", n).Msg("token cleanup completed")
	}
	return n
}
