package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func newFramesCmd(a *app) *cobra.Command {
	var (
		duration time.Duration
		text     bool
	)
	cmd := &cobra.Command{
		Use:   "frames",
		Short: "Print every frame received from the transform streams",
		Long: `Frames listens to the transform streams for a while, then prints every
frame received along with its parent, its publisher, and the rate and range
of its transforms.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.frames(cmd.Context(), cmd.OutOrStdout(), duration, text)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to listen before printing")
	cmd.Flags().BoolVar(&text, "text", false, "print one line per frame instead of YAML")
	return cmd
}

func (a *app) frames(ctx context.Context, w io.Writer, duration time.Duration, text bool) error {
	buf := a.newBuffer()
	defer buf.Close()

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()
	a.logger.Info("Listening to the transform streams...", slog.Duration("duration", duration))
	if err := a.listen(ctx, buf); err != nil {
		return err
	}

	if text {
		_, err := io.WriteString(w, buf.AllFramesAsString())
		return err
	}
	out, err := buf.AllFramesAsYAML()
	if err != nil {
		return err
	}
	if out == "" {
		_, err := fmt.Fprintln(w, "No frames received.")
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
