package services

import (
	"context"
	"log"
	"time"

	"dailyDuoAPI/internal/events"
	"dailyDuoAPI/internal/metrics"
)

const publishTimeout = 5 * time.Second

// publish sends e after the write that caused it has committed. A failure is
// logged and counted; it never fails the caller.
func publish(ctx context.Context, p events.Publisher, e events.Event) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.Publish(ctx, e); err != nil {
		metrics.EventPublishFailures.WithLabelValues(string(e.Type)).Inc()
		log.Printf("publish: failed to publish %s (key %s): %v", e.Type, e.Key, err)
	}
}
