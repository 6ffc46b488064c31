package tfpubsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielorbach/go-component"
	"gocloud.dev/pubsub"
)

// EventSource wraps a pubsub subscription and decodes incoming messages into
// typed events.
type EventSource[T any] struct {
	Subscription *pubsub.Subscription
	Decode       func(p []byte, v *T) error
}

// EventHandler is a function that processes a decoded event, along with the
// metadata of the message that carried it.
type EventHandler[T any] func(ctx context.Context, event T, metadata map[string]string) error

// Receive continuously receives messages from the subscription, decodes them
// and passes them to h, until ctx is done or h fails.
//
// Messages that cannot be decoded are logged and skipped; a single malformed
// message never stops the stream. Receive returns nil when ctx is done, and an
// error if the subscription fails or h does.
func (s EventSource[T]) Receive(ctx context.Context, h EventHandler[T]) error {
	logger := component.Logger(ctx)
	for {
		msg, err := s.Subscription.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				// we're shutting down
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		// always ack, even if we fail to decode.
		// otherwise, we might get stuck processing
		// the same failed message
		msg.Ack()

		var event T
		if err := s.Decode(msg.Body, &event); err != nil {
			measureDecodeFailure(ctx)
			logger.Warn("Couldn't decode message, message skipped",
				slog.String("msg-id", msg.LoggableID),
				slog.Any("error", err),
			)
			continue
		}

		if err := h(ctx, event, msg.Metadata); err != nil {
			return fmt.Errorf("process: %w", err)
		}
	}
}

// Stream returns a component.Proc that runs Receive for the lifetime of the
// component, and fails the component if Receive fails.
func (s EventSource[T]) Stream(h EventHandler[T]) component.Proc {
	return func(l *component.L) {
		if err := s.Receive(l.Context(), h); err != nil {
			l.Fatal(err)
		}
	}
}
