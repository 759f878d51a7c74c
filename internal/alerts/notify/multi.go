package notify

import (
	"context"
	"errors"

	"kilowatch/internal/alerts"
)

// Multi fans one alert out to several channels. Every channel gets the alert
// even when an earlier one fails; the errors are joined.
type Multi struct {
	channels []alerts.Notifier
}

// NewMulti constructs a fan-out notifier.
func NewMulti(channels ...alerts.Notifier) *Multi {
	return &Multi{channels: channels}
}

// Notify implements alerts.Notifier.
func (m *Multi) Notify(ctx context.Context, alert alerts.Alert) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, channel := range m.channels {
		if channel == nil {
			continue
		}
		if err := channel.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
