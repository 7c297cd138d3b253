package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ylabs/internal/common"
	"ylabs/internal/domain/analytics"
	"ylabs/internal/domain/user"
	"ylabs/internal/observability"
)

const analyticsWriteTimeout = 5 * time.Second

// AnalyticsLogger records events in the background. Failures are logged and
// never reach the caller.
type AnalyticsLogger struct {
	repo    analytics.Repository
	users   user.Repository
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewAnalyticsLogger(repo analytics.Repository, users user.Repository, logger *slog.Logger) *AnalyticsLogger {
	if logger == nil {
		logger = observability.Discard()
	}
	return &AnalyticsLogger{repo: repo, users: users, logger: logger, timeout: analyticsWriteTimeout, now: time.Now}
}

func (l *AnalyticsLogger) Log(ctx context.Context, event analytics.Event) {
	if l == nil || l.repo == nil {
		return
	}
	if !event.EventType.Valid() {
		l.logger.Warn("analytics event dropped", "event_type", string(event.EventType), "reason", "unknown event type")
		return
	}
	event.UserType = string(user.ParseType(event.UserType))
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		l.write(writeCtx, event)
	}()
}

func (l *AnalyticsLogger) write(ctx context.Context, event analytics.Event) {
	if err := l.repo.Create(ctx, event); err != nil {
		l.logger.Warn("analytics event not recorded", "event_type", string(event.EventType), "netid", event.NetID, "error", err)
	}
	if l.users == nil || event.NetID == "" {
		return
	}
	login := event.EventType == analytics.EventLogin
	if err := l.users.TouchActivity(ctx, event.NetID, event.Timestamp, login); err != nil && !common.Is(err, common.CodeNotFound) {
		l.logger.Warn("user activity not updated", "netid", event.NetID, "error", err)
	}
}

// Close waits for in-flight writes or for ctx to end.
func (l *AnalyticsLogger) Close(ctx context.Context) error {
	if l == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
