// Package event holds the publishing side shared by services that emit
// domain events.
package event

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, e domain.Event) error
}

// Emit publishes payload as eventType. Delivery is best effort: the write
// that produced the event has already succeeded, so failures are logged
// and not returned.
func Emit(ctx context.Context, pub Publisher, log *logrus.Logger, eventType string, payload any) {
	if pub == nil {
		return
	}
	e, err := domain.NewEvent(eventType, payload)
	if err != nil {
		log.WithError(err).WithField("event", eventType).Error("encode event")
		return
	}
	if err := pub.Publish(ctx, e); err != nil {
		log.WithError(err).WithField("event", eventType).Error("publish event")
	}
}
