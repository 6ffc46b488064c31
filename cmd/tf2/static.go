package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/spf13/cobra"
	"gocloud.dev/pubsub"

	"github.com/go-digitaltwin/tf2"
	"github.com/go-digitaltwin/tf2/tfpubsub"
)

// staticTransform is a static transform as read from the configuration file:
//
//	static_transforms:
//	  - frame_id: base_link
//	    child_frame_id: laser
//	    translation: {x: 0.1, z: 0.2}
//	    rotation: {yaw: 1.5708}
type staticTransform struct {
	FrameID      string `mapstructure:"frame_id"`
	ChildFrameID string `mapstructure:"child_frame_id"`
	Translation  struct {
		X, Y, Z float64
	} `mapstructure:"translation"`
	// Rotation is either a quaternion (x, y, z, w) or Euler angles (roll, pitch,
	// yaw) in radians. A rotation with neither is the identity.
	Rotation struct {
		X, Y, Z, W       float64
		Roll, Pitch, Yaw float64
	} `mapstructure:"rotation"`
}

func (s staticTransform) stamped(stamp tf2.Time) tf2.TransformStamped {
	r := s.Rotation
	q := tf2.Quaternion{X: r.X, Y: r.Y, Z: r.Z, W: r.W}
	if q == (tf2.Quaternion{}) {
		q = fromRPY(r.Roll, r.Pitch, r.Yaw)
	}
	return tf2.TransformStamped{
		Header:       tf2.Header{Stamp: stamp, FrameID: s.FrameID},
		ChildFrameID: s.ChildFrameID,
		Transform: tf2.Transform{
			Translation: tf2.Vector3{X: s.Translation.X, Y: s.Translation.Y, Z: s.Translation.Z},
			Rotation:    q,
		},
	}
}

// fromRPY returns the rotation of roll about X, then pitch about Y, then yaw
// about Z (fixed axes).
func fromRPY(roll, pitch, yaw float64) tf2.Quaternion {
	sr, cr := math.Sincos(roll / 2)
	sp, cp := math.Sincos(pitch / 2)
	sy, cy := math.Sincos(yaw / 2)
	return tf2.Quaternion{
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
		W: cr*cp*cy + sr*sp*sy,
	}
}

func newStaticCmd(a *app) *cobra.Command {
	var (
		flagged staticTransform
		period  time.Duration
		once    bool
	)
	cmd := &cobra.Command{
		Use:   "static",
		Short: "Publish static transforms",
		Long: `Static publishes the static transform given by flags, or every transform
listed under static_transforms in the configuration file, to the static
transform stream.

Unless --once is given, the transforms are republished every --period until
interrupted, so that listeners started later receive them too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !once && period <= 0 {
				return fmt.Errorf("--period must be positive, got %v", period)
			}
			var transforms []staticTransform
			if cmd.Flags().Changed("child-frame-id") {
				transforms = append(transforms, flagged)
			} else if err := a.v.UnmarshalKey(cfgKeyStaticTransforms, &transforms); err != nil {
				return fmt.Errorf("%s: %w", cfgKeyStaticTransforms, err)
			}
			if len(transforms) == 0 {
				return fmt.Errorf("no static transforms: set --frame-id and --child-frame-id, or %s in the config file", cfgKeyStaticTransforms)
			}
			return a.publishStatic(cmd.Context(), transforms, period, once)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&flagged.FrameID, "frame-id", "", "parent frame")
	flags.StringVar(&flagged.ChildFrameID, "child-frame-id", "", "child frame")
	flags.Float64Var(&flagged.Translation.X, "x", 0, "translation along X, in metres")
	flags.Float64Var(&flagged.Translation.Y, "y", 0, "translation along Y, in metres")
	flags.Float64Var(&flagged.Translation.Z, "z", 0, "translation along Z, in metres")
	flags.Float64Var(&flagged.Rotation.Roll, "roll", 0, "rotation about X, in radians")
	flags.Float64Var(&flagged.Rotation.Pitch, "pitch", 0, "rotation about Y, in radians")
	flags.Float64Var(&flagged.Rotation.Yaw, "yaw", 0, "rotation about Z, in radians")
	flags.Float64Var(&flagged.Rotation.X, "qx", 0, "rotation quaternion X (overrides roll, pitch and yaw)")
	flags.Float64Var(&flagged.Rotation.Y, "qy", 0, "rotation quaternion Y")
	flags.Float64Var(&flagged.Rotation.Z, "qz", 0, "rotation quaternion Z")
	flags.Float64Var(&flagged.Rotation.W, "qw", 0, "rotation quaternion W")
	flags.DurationVar(&period, "period", time.Second, "how often the transforms are republished")
	flags.BoolVar(&once, "once", false, "publish once and exit")
	return cmd
}

func (a *app) publishStatic(ctx context.Context, transforms []staticTransform, period time.Duration, once bool) error {
	a.logger.Debug("Opening topic...", slog.String("topic-name", a.cfg.StaticTopic))
	topic, err := pubsub.OpenTopic(ctx, a.cfg.StaticTopic)
	if err != nil {
		return fmt.Errorf("open topic %q: %w", a.cfg.StaticTopic, err)
	}
	defer shutdown(a.logger, topic.Shutdown)

	stamp := tf2.FromTime(time.Now())
	stamped := make([]tf2.TransformStamped, len(transforms))
	for i, s := range transforms {
		stamped[i] = s.stamped(stamp)
	}

	b := tfpubsub.NewStaticBroadcaster(topic, a.cfg.Authority)
	if err := b.SendTransform(ctx, stamped...); err != nil {
		return err
	}
	a.logger.Info("Static transforms published", slog.Int("transforms", len(stamped)), slog.String("authority", a.cfg.Authority))
	if once {
		return nil
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := b.SendTransform(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
