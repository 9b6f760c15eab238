package mq

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Adapter fans every event out to the configured publishers. A failing
// publisher does not stop delivery to the others.
type Adapter struct {
	publishers []Publisher
	log        *zap.Logger
}

// NewAdapter fans events out to publishers
func NewAdapter(log *zap.Logger, publishers ...Publisher) *Adapter {
	return &Adapter{publishers: publishers, log: log.Named("mq")}
}

// Add registers another publisher. Not safe to call while publishing.
func (a *Adapter) Add(p Publisher) {
	a.publishers = append(a.publishers, p)
}

// Publish sends event to every publisher. A failing publisher does not stop
// the others; their errors are joined.
func (a *Adapter) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range a.publishers {
		if err := p.Publish(ctx, event); err != nil {
			a.log.Warn("publish failed",
				zap.String("event_id", event.ID),
				zap.String("type", string(event.Type)),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of registered publishers
func (a *Adapter) Len() int {
	return len(a.publishers)
}
