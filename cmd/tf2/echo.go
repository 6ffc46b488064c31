package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-digitaltwin/tf2"
	"github.com/go-digitaltwin/tf2/tfpubsub"
)

type echoOptions struct {
	rate    float64
	count   int
	timeout time.Duration
}

// period returns the interval between two echoes, or an error if the rate is
// not a positive number or is too high to be expressed in nanoseconds.
func (o echoOptions) period() (time.Duration, error) {
	if !(o.rate > 0) {
		return 0, fmt.Errorf("--rate must be positive, got %v", o.rate)
	}
	period := time.Duration(float64(time.Second) / o.rate)
	if period <= 0 {
		return 0, fmt.Errorf("--rate %v is too high: at most %v Hz", o.rate, float64(time.Second))
	}
	return period, nil
}

func newEchoCmd(a *app) *cobra.Command {
	var opts echoOptions
	cmd := &cobra.Command{
		Use:   "echo TARGET SOURCE",
		Short: "Print the transform mapping SOURCE coordinates into TARGET",
		Long: `Echo listens to the transform streams and prints the latest transform
mapping coordinates of the SOURCE frame into the TARGET frame, at a fixed rate.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.period(); err != nil {
				return err
			}
			return a.echo(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], opts)
		},
	}
	cmd.Flags().Float64Var(&opts.rate, "rate", 1, "echo rate in Hz")
	cmd.Flags().IntVar(&opts.count, "count", 0, "exit after printing this many transforms (0: never)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "give up if the transform is not available in time (0: never)")
	return cmd
}

func (a *app) echo(ctx context.Context, w io.Writer, target, source string, opts echoOptions) error {
	buf := a.newBuffer()
	defer buf.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.listen(ctx, buf)
	})
	g.Go(func() error {
		// The listener stops once we are done echoing.
		defer cancel()
		return echoTransforms(ctx, w, buf, target, source, opts)
	})
	return g.Wait()
}

func echoTransforms(ctx context.Context, w io.Writer, buf *tf2.Buffer, target, source string, opts echoOptions) error {
	period, err := opts.period()
	if err != nil {
		return err
	}

	waitCtx := ctx
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}
	if err := tfpubsub.WaitForTransform(waitCtx, buf, target, source, tf2.Latest, min(period, 100*time.Millisecond)); err != nil {
		if ctx.Err() != nil {
			// Interrupted, not timed out.
			return nil
		}
		return err
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for printed := 0; opts.count == 0 || printed < opts.count; {
		ts, err := buf.LookupTransform(target, source, tf2.Latest)
		if err != nil {
			fmt.Fprintln(w, "Failure:", err)
		} else {
			printTransform(w, ts)
			printed++
		}
		if opts.count != 0 && printed >= opts.count {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func printTransform(w io.Writer, ts tf2.TransformStamped) {
	t, q := ts.Transform.Translation, ts.Transform.Rotation
	fmt.Fprintf(w, "At time %v\n", ts.Header.Stamp)
	fmt.Fprintf(w, "- Translation: [%.3f, %.3f, %.3f]\n", t.X, t.Y, t.Z)
	fmt.Fprintf(w, "- Rotation: in Quaternion [%.3f, %.3f, %.3f, %.3f]\n", q.X, q.Y, q.Z, q.W)
}
