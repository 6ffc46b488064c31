package tfpubsub

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/pubsub"

	"github.com/go-digitaltwin/tf2"
)

// A Broadcaster publishes dynamic transforms to a topic.
type Broadcaster struct {
	topic     *pubsub.Topic
	authority string
}

// NewBroadcaster returns a Broadcaster publishing to topic on behalf of the
// given authority (e.g. the name of the publishing process).
func NewBroadcaster(topic *pubsub.Topic, authority string) *Broadcaster {
	return &Broadcaster{topic: topic, authority: authority}
}

// SendTransform publishes the given transforms as a single message.
func (b *Broadcaster) SendTransform(ctx context.Context, transforms ...tf2.TransformStamped) error {
	if len(transforms) == 0 {
		return nil
	}
	return send(ctx, b.topic, b.authority, Message{Transforms: transforms})
}

func send(ctx context.Context, topic *pubsub.Topic, authority string, m Message) error {
	ctx, span := tracer.Start(ctx, "tfpubsub.send", trace.WithAttributes(
		attribute.String("authority", authority),
		attribute.Int("transforms", len(m.Transforms)),
	))
	defer span.End()

	body, err := m.Encode()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	msg := &pubsub.Message{Body: body, Metadata: m.metadata(authority)}
	if err := topic.Send(ctx, msg); err != nil {
		err := fmt.Errorf("send: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// A StaticBroadcaster publishes static transforms to a topic.
//
// Pubsub topics do not retain messages for subscribers that join later, so a
// StaticBroadcaster keeps the latest transform of every child frame it has sent
// and republishes the whole set on every send. The latest message on the topic
// therefore always describes every static edge of this publisher.
type StaticBroadcaster struct {
	topic     *pubsub.Topic
	authority string

	mu     sync.Mutex
	latest map[string]tf2.TransformStamped // by child frame
}

// NewStaticBroadcaster returns a StaticBroadcaster publishing to topic on
// behalf of the given authority.
func NewStaticBroadcaster(topic *pubsub.Topic, authority string) *StaticBroadcaster {
	return &StaticBroadcaster{
		topic:     topic,
		authority: authority,
		latest:    make(map[string]tf2.TransformStamped),
	}
}

// SendTransform records the given transforms, replacing earlier ones for the
// same child frames, then publishes every recorded transform as one message.
func (b *StaticBroadcaster) SendTransform(ctx context.Context, transforms ...tf2.TransformStamped) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range transforms {
		b.latest[t.ChildFrameID] = t
	}
	return send(ctx, b.topic, b.authority, Message{Transforms: b.snapshotLocked()})
}

// Transforms returns every recorded transform, ordered by child frame.
func (b *StaticBroadcaster) Transforms() []tf2.TransformStamped {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *StaticBroadcaster) snapshotLocked() []tf2.TransformStamped {
	return slices.SortedFunc(maps.Values(b.latest), func(x, y tf2.TransformStamped) int {
		return cmp.Compare(x.ChildFrameID, y.ChildFrameID)
	})
}
