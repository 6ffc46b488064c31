package tf2

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/go-digitaltwin/tf2")

const (
	// errorKindKey labels failure records with the Kind of the failure, so that
	// dashboards can tell missing frames apart from stale data.
	errorKindKey = "tf2.error.kind"
	// operationKey labels lookup records with the public method that ran them.
	operationKey = "tf2.operation"
)

var (
	// setTransformRejections counts SetTransform calls that failed.
	//
	// Each record is associated with the errorKindKey.
	setTransformRejections metric.Int64Counter
	// lookupDuration measures successful lookups, path resolution through
	// composition.
	//
	// Each record is associated with the operationKey.
	lookupDuration metric.Float64Histogram
	// lookupFailures counts lookups that failed.
	//
	// Each record is associated with the operationKey and the errorKindKey.
	lookupFailures metric.Int64Counter
	// cacheEvictions counts dynamic samples evicted by the retention window.
	cacheEvictions metric.Int64Counter
)

func init() {
	var err error
	setTransformRejections, err = meter.Int64Counter(
		"tf2.set_transform.rejected",
		metric.WithDescription("The number of transforms rejected by SetTransform."),
	)
	if err != nil {
		panic("tf2: failed to init 'tf2.set_transform.rejected' instrument")
	}

	lookupDuration, err = meter.Float64Histogram(
		"tf2.lookup.duration",
		metric.WithDescription("The duration of a successful lookup, from path resolution to composition."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("tf2: failed to init 'tf2.lookup.duration' instrument")
	}

	lookupFailures, err = meter.Int64Counter(
		"tf2.lookup.failures",
		metric.WithDescription("The number of lookups that have failed."),
	)
	if err != nil {
		panic("tf2: failed to init 'tf2.lookup.failures' instrument")
	}

	cacheEvictions, err = meter.Int64Counter(
		"tf2.cache.evictions",
		metric.WithDescription("The number of dynamic samples evicted by the retention window."),
	)
	if err != nil {
		panic("tf2: failed to init 'tf2.cache.evictions' instrument")
	}
}

// The buffer has no context of its own, its operations being synchronous and
// uncancellable; records are made against the background context.

func measureRejection(err error) {
	kind, _ := Classify(err)
	setTransformRejections.Add(context.Background(), 1, metric.WithAttributeSet(
		attribute.NewSet(attribute.String(errorKindKey, kind.String())),
	))
}

// measureLookup records the duration of a successful lookup, or increments the
// failure counter labelled with the kind of the failure.
func measureLookup(op string, err error, d time.Duration) {
	ctx := context.Background()
	if err == nil {
		// Floating-point division for sub-millisecond precision.
		duration := float64(d) / float64(time.Millisecond)
		lookupDuration.Record(ctx, duration, metric.WithAttributeSet(
			attribute.NewSet(attribute.String(operationKey, op)),
		))
		return
	}
	kind, _ := Classify(err)
	lookupFailures.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(
		attribute.String(operationKey, op),
		attribute.String(errorKindKey, kind.String()),
	)))
}

func measureEvictions(n int) {
	if n > 0 {
		cacheEvictions.Add(context.Background(), int64(n))
	}
}
