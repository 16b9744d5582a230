package notifier

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// ErrPermissionDenied is returned by Show when permission was never granted
// and cannot be silently requested. Callers treat it as non-fatal: a failed
// alert must not block feed bookkeeping.
var ErrPermissionDenied = errors.New("notification permission denied")

// AlertDispatcher fires a device-facing alert for a delivered notification.
// The gateway marks records shown before dispatching, so implementations may
// fail without causing duplicate alerts later.
type AlertDispatcher interface {
	RequestPermission(ctx context.Context) (bool, error)
	Show(ctx context.Context, title, body string, data map[string]string) (string, error)
}

// ConsoleDispatcher logs alerts instead of pushing them. Used in development
// and as the fallback when no push provider is configured.
type ConsoleDispatcher struct {
	logger *slog.Logger
}

func NewConsole(logger *slog.Logger) *ConsoleDispatcher {
	return &ConsoleDispatcher{logger: logger}
}

func (c *ConsoleDispatcher) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

func (c *ConsoleDispatcher) Show(ctx context.Context, title, body string, data map[string]string) (string, error) {
	alertID := uuid.New().String()
	c.logger.Info("local alert",
		"alert_id", alertID,
		"title", title,
		"body", body,
		"data", data,
	)
	return alertID, nil
}
