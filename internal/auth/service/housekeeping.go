package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/store"
)

// HousekeepingService periodically deletes expired authorization codes and
// refresh tokens so the store does not grow without bound. An expired
// refresh token is kept while any token rotated from it is still valid, so
// a late replay still revokes the chain.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// CleanupResult reports how many rows one pass removed.
type CleanupResult struct {
	AuthorizationCodes int64
	RefreshTokens      int64
}

// Cleanup runs one pass. Each deletion is independent; a failure in one
// does not stop the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) CleanupResult {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}

	var res CleanupResult
	var err error

	if res.AuthorizationCodes, err = s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired authorization codes", "error", err)
	}
	if res.RefreshTokens, err = s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}

	s.Logger.Info("housekeeping cleanup completed",
		"authorization_codes", res.AuthorizationCodes,
		"refresh_tokens", res.RefreshTokens)
	return res
}
