package tfpubsub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gocloud.dev/pubsub"
	"gocloud.dev/pubsub/mempubsub"

	"github.com/go-digitaltwin/tf2"
)

// stream is a topic with a single subscription, both shut down at the end of
// the test.
func stream(t *testing.T) (*pubsub.Topic, *pubsub.Subscription) {
	t.Helper()
	topic := mempubsub.NewTopic()
	sub := mempubsub.NewSubscription(topic, time.Minute)
	t.Cleanup(func() {
		ctx := context.Background()
		_ = sub.Shutdown(ctx)
		_ = topic.Shutdown(ctx)
	})
	return topic, sub
}

// listen runs a Listener feeding b until the test ends, and returns a channel
// delivering the result of Run.
func listen(t *testing.T, b tf2.Setter, dynamic, static *pubsub.Subscription) <-chan error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		done <- NewListener(b).Run(ctx, dynamic, static)
	}()
	t.Cleanup(func() {
		cancel()
		<-finished
	})
	return done
}

func waitFor(t *testing.T, b *tf2.Buffer, target, source string, stamp tf2.Time) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := WaitForTransform(ctx, b, target, source, stamp, time.Millisecond); err != nil {
		t.Fatal(err)
	}
}

func translation(parent, child string, stamp tf2.Time, x float64) tf2.TransformStamped {
	return tf2.TransformStamped{
		Header:       tf2.Header{Stamp: stamp, FrameID: parent},
		ChildFrameID: child,
		Transform: tf2.Transform{
			Translation: tf2.Vector3{X: x},
			Rotation:    tf2.IdentityQuaternion(),
		},
	}
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestListenerFeedsBuffer(t *testing.T) {
	dynamicTopic, dynamicSub := stream(t)
	staticTopic, staticSub := stream(t)
	buf := tf2.NewBuffer()
	listen(t, buf, dynamicSub, staticSub)

	ctx := context.Background()
	static := NewStaticBroadcaster(staticTopic, "calibration")
	if err := static.SendTransform(ctx, translation("base_link", "laser", 0, 0.5)); err != nil {
		t.Fatal(err)
	}
	dynamic := NewBroadcaster(dynamicTopic, "odometry")
	if err := dynamic.SendTransform(ctx,
		translation("odom", "base_link", tf2.FromSeconds(1), 1),
		translation("odom", "base_link", tf2.FromSeconds(2), 3),
	); err != nil {
		t.Fatal(err)
	}

	waitFor(t, buf, "odom", "laser", tf2.FromSeconds(1.5))
	got, err := buf.LookupTransform("odom", "laser", tf2.FromSeconds(1.5))
	if err != nil {
		t.Fatal(err)
	}
	want := tf2.Vector3{X: 2.5}
	if diff := cmp.Diff(want, got.Transform.Translation, approx); diff != "" {
		t.Errorf("LookupTransform(odom, laser) translation mismatch (-want +got):\n%s", diff)
	}

	tree := buf.Tree()
	for frame, authority := range map[string]string{"laser": "calibration", "base_link": "odometry"} {
		f, ok := tree.Frame(frame)
		if !ok {
			t.Fatalf("frame %q missing from the buffer", frame)
		}
		if f.Authority != authority {
			t.Errorf("frame %q authority = %q, want %q", frame, f.Authority, authority)
		}
	}
	if f, _ := tree.Frame("laser"); !f.Static {
		t.Errorf("frame laser was not stored as static")
	}
}

func TestListenerSkipsBadInput(t *testing.T) {
	topic, sub := stream(t)
	buf := tf2.NewBuffer()
	listen(t, buf, sub, nil)
	ctx := context.Background()

	// A message that is not a gob-encoded Message at all.
	if err := topic.Send(ctx, &pubsub.Message{Body: []byte("not gob")}); err != nil {
		t.Fatal(err)
	}
	// A message carrying one valid and one self-parented transform.
	b := NewBroadcaster(topic, "")
	if err := b.SendTransform(ctx,
		translation("map", "map", tf2.FromSeconds(1), 1),
		translation("map", "odom", tf2.FromSeconds(1), 1),
	); err != nil {
		t.Fatal(err)
	}

	waitFor(t, buf, "map", "odom", tf2.FromSeconds(1))
	f, _ := buf.Tree().Frame("odom")
	if f.Authority != DefaultAuthority {
		t.Errorf("frame odom authority = %q, want %q", f.Authority, DefaultAuthority)
	}
}

func TestListenerStopsOnClosedBuffer(t *testing.T) {
	topic, sub := stream(t)
	buf := tf2.NewBuffer()
	done := listen(t, buf, sub, nil)
	_ = buf.Close()

	if err := NewBroadcaster(topic, "").SendTransform(context.Background(), translation("map", "odom", 1, 1)); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, tf2.ErrClosed) {
			t.Errorf("Run() = %v, want an error wrapping tf2.ErrClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after the buffer was closed")
	}
}

func TestStaticBroadcasterRepublishesAll(t *testing.T) {
	topic, sub := stream(t)
	ctx := context.Background()
	b := NewStaticBroadcaster(topic, "static_transform_publisher")

	sends := [][]tf2.TransformStamped{
		{translation("base_link", "laser", 0, 1)},
		{translation("base_link", "camera", 0, 2)},
		{translation("base_link", "laser", 0, 3)},
	}
	for _, transforms := range sends {
		if err := b.SendTransform(ctx, transforms...); err != nil {
			t.Fatal(err)
		}
	}

	var last Message
	for range sends {
		msg, err := sub.Receive(ctx)
		if err != nil {
			t.Fatal(err)
		}
		msg.Ack()
		if got := msg.Metadata[MetadataAuthority]; got != "static_transform_publisher" {
			t.Errorf("message authority = %q, want %q", got, "static_transform_publisher")
		}
		last = Message{}
		if err := DecodeMessage(msg.Body, &last); err != nil {
			t.Fatal(err)
		}
	}

	want := Message{Transforms: []tf2.TransformStamped{
		translation("base_link", "camera", 0, 2),
		translation("base_link", "laser", 0, 3),
	}}
	if diff := cmp.Diff(want, last); diff != "" {
		t.Errorf("last static message mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Transforms, b.Transforms()); diff != "" {
		t.Errorf("Transforms() mismatch (-want +got):\n%s", diff)
	}
}

func TestWaitForTransformTimeout(t *testing.T) {
	buf := tf2.NewBuffer()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := WaitForTransform(ctx, buf, "map", "odom", tf2.Latest, time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("WaitForTransform() = %v, want an error wrapping ErrTimeout", err)
	}
}

func TestWaitForTransformNonPositivePoll(t *testing.T) {
	buf := tf2.NewBuffer()
	if _, err := buf.SetTransform(translation("map", "odom", tf2.FromSeconds(1), 1), "test", false); err != nil {
		t.Fatal(err)
	}

	for _, poll := range []time.Duration{0, -time.Second} {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		if err := WaitForTransform(ctx, buf, "map", "odom", tf2.Latest, poll); err != nil {
			t.Errorf("WaitForTransform(poll=%v) on an available transform = %v", poll, err)
		}
		if err := WaitForTransform(ctx, buf, "map", "nowhere", tf2.Latest, poll); !errors.Is(err, ErrTimeout) {
			t.Errorf("WaitForTransform(poll=%v) on a missing frame = %v, want an error wrapping ErrTimeout", poll, err)
		}
		cancel()
	}
}
