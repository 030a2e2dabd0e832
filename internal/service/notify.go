package service

import (
	"context"
	"errors"
	"time"

	"zen-storefront/internal/notification"

	"go.uber.org/zap"
)

// Warnings attached to otherwise successful responses.
const (
	WarningOrderNotificationFailed  = "order placed, notification failed"
	WarningStatusNotificationFailed = "order updated, notification failed"
	WarningAlertNotificationFailed  = "alert recorded, notification failed"
)

// notifier delivers best-effort events. Failures are logged and returned so
// the caller can downgrade them to a warning; nothing is retried.
type notifier struct {
	dispatcher notification.Dispatcher
	timeout    time.Duration
	logger     *zap.Logger
}

func (n notifier) send(ctx context.Context, events ...notification.Event) error {
	var errs []error
	for _, event := range events {
		sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
		err := n.dispatcher.Dispatch(sendCtx, event)
		cancel()
		if err != nil {
			n.logger.Warn("Notification failed",
				zap.String("event", string(event.Type)),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
