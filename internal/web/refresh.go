package web

// refresh.go keeps the served snapshot current.
//
// The refresher is long-running and context-aware for graceful shutdown. A
// failed reload is logged and the previous snapshot stays in use, so a
// flaky source never takes the preview API down.

import (
	"context"
	"log/slog"
	"time"
)

// StartSnapshotRefresher reloads the snapshot every interval until ctx is
// cancelled. A non-positive interval returns immediately.
func (s *Server) StartSnapshotRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	slog.Info("snapshot refresher started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("snapshot refresher stopped")
			return
		case <-ticker.C:
			s.runRefresh(ctx, interval)
		}
	}
}

// runRefresh performs one reload, bounded by the refresh interval.
func (s *Server) runRefresh(ctx context.Context, interval time.Duration) {
	reloadCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()

	if err := s.ReloadSnapshot(reloadCtx); err != nil {
		entities, loadedAt, _ := s.snapshotInfo()
		slog.Error("snapshot reload failed, keeping previous snapshot",
			"error", err,
			"entities", entities,
			"loaded_at", loadedAt,
		)
	}
}
