package tfpubsub

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/pubsub"
	"golang.org/x/sync/errgroup"

	"github.com/go-digitaltwin/tf2"
)

// DefaultAuthority is recorded for transforms received in messages that do not
// name their publisher.
const DefaultAuthority = "default_authority"

// A Listener feeds a tf2.Setter (usually a *tf2.Buffer) from the dynamic and
// static transform streams.
//
// Whoever constructs a Listener owns the subscriptions it is given: a
// subscription must not be shared with another Listener, as each message is
// delivered to only one of them.
type Listener struct {
	setter    tf2.Setter
	authority string
}

// NewListener returns a Listener that passes every received transform to s, in
// the order received. Transforms from messages without an authority are
// attributed to DefaultAuthority.
func NewListener(s tf2.Setter) *Listener {
	return &Listener{setter: s, authority: DefaultAuthority}
}

// WithAuthority returns a copy of l that attributes transforms from messages
// without an authority to the given one.
func (l *Listener) WithAuthority(authority string) *Listener {
	c := *l
	c.authority = authority
	return &c
}

// Listen returns a component.Proc that forks one stream per subscription. A nil
// subscription is not listened to.
func (l *Listener) Listen(dynamic, static *pubsub.Subscription) component.Proc {
	return func(c *component.L) {
		if dynamic != nil {
			c.Fork("tf", l.source(dynamic).Stream(l.handler(false)))
		}
		if static != nil {
			c.Fork("tf_static", l.source(static).Stream(l.handler(true)))
		}
	}
}

// Run listens to both subscriptions until ctx is done or either stream fails.
// It is the equivalent of Listen for callers outside of a component lifecycle.
//
// Run returns nil once ctx is done. If the setter is a tf2.Buffer that gets
// closed, Run returns an error wrapping tf2.ErrClosed.
func (l *Listener) Run(ctx context.Context, dynamic, static *pubsub.Subscription) error {
	g, ctx := errgroup.WithContext(ctx)
	if dynamic != nil {
		g.Go(func() error {
			return l.source(dynamic).Receive(ctx, l.handler(false))
		})
	}
	if static != nil {
		g.Go(func() error {
			return l.source(static).Receive(ctx, l.handler(true))
		})
	}
	return g.Wait()
}

func (l *Listener) source(sub *pubsub.Subscription) EventSource[Message] {
	return EventSource[Message]{
		Subscription: sub,
		Decode:       DecodeMessage,
	}
}

// handler applies each transform of a message to the setter. Transforms the
// setter rejects are logged and skipped, so that one bad publisher never stalls
// the stream for everyone else.
func (l *Listener) handler(isStatic bool) EventHandler[Message] {
	return func(ctx context.Context, m Message, metadata map[string]string) error {
		authority := metadata[MetadataAuthority]
		if authority == "" {
			authority = l.authority
		}

		ctx, span := tracer.Start(ctx, "tfpubsub.Listener.handle", trace.WithAttributes(
			attribute.String("authority", authority),
			attribute.Bool("static", isStatic),
			attribute.Int("transforms", len(m.Transforms)),
		))
		defer span.End()

		logger := component.Logger(ctx).With(
			slog.String("authority", authority),
			slog.Bool("static", isStatic),
		)
		logger.Debug("New transforms message received", slog.Int("transforms", len(m.Transforms)))

		rejected := 0
		for _, t := range m.Transforms {
			_, err := l.setter.SetTransform(t, authority, isStatic)
			if errors.Is(err, tf2.ErrClosed) {
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			measureReceived(ctx, isStatic, err)
			if err != nil {
				rejected++
				logger.Warn("Transform rejected, skipped",
					slog.String("frame", t.ChildFrameID),
					slog.String("parent", t.Header.FrameID),
					slog.Any("stamp", t.Header.Stamp),
					slog.Any("error", err),
				)
			}
		}
		if rejected > 0 {
			span.SetStatus(codes.Error, "some transforms were rejected")
		}
		return nil
	}
}
