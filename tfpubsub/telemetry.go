package tfpubsub

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/go-digitaltwin/tf2"
)

var tracer = otel.Tracer("github.com/go-digitaltwin/tf2/tfpubsub")
var meter = otel.Meter("github.com/go-digitaltwin/tf2/tfpubsub")

const (
	// staticKey labels records with whether they belong to the static stream.
	staticKey = "tf2.static"
	// acceptedKey labels received transforms with whether the buffer accepted
	// them.
	acceptedKey = "tf2.accepted"
)

var (
	// transformsReceived counts the transforms received by listeners.
	//
	// Each record is associated with the staticKey and the acceptedKey.
	transformsReceived metric.Int64Counter
	// decodeFailures counts messages that could not be decoded and were skipped.
	decodeFailures metric.Int64Counter
)

func init() {
	var err error
	transformsReceived, err = meter.Int64Counter(
		"tfpubsub.transforms.received",
		metric.WithDescription("The number of transforms received from the transform streams."),
	)
	if err != nil {
		panic("tfpubsub: failed to init 'tfpubsub.transforms.received' instrument")
	}

	decodeFailures, err = meter.Int64Counter(
		"tfpubsub.decode.failures",
		metric.WithDescription("The number of messages skipped because they could not be decoded."),
	)
	if err != nil {
		panic("tfpubsub: failed to init 'tfpubsub.decode.failures' instrument")
	}
}

func measureReceived(ctx context.Context, isStatic bool, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool(staticKey, isStatic),
		attribute.Bool(acceptedKey, err == nil),
	}
	if err != nil {
		kind, _ := tf2.Classify(err)
		attrs = append(attrs, attribute.String("tf2.error.kind", kind.String()))
	}
	transformsReceived.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(attrs...)))
}

func measureDecodeFailure(ctx context.Context) {
	decodeFailures.Add(ctx, 1)
}
