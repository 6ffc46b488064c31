package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielorbach/go-component"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gocloud.dev/pubsub"

	"github.com/go-digitaltwin/tf2"
	"github.com/go-digitaltwin/tf2/tfpubsub"
)

// app holds the state shared by the commands of a single invocation.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "tf2",
		Short:         "Inspect and feed the transform streams of a robot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v, a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			// Inject for further logs down the call-stack (e.g. tfpubsub).
			cmd.SetContext(component.InjectLogger(ctx, a.logger))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: ./tf2.yaml or ~/.config/tf2/tf2.yaml)")
	bindFlags(root, a.v)

	root.AddCommand(newEchoCmd(a))
	root.AddCommand(newFramesCmd(a))
	root.AddCommand(newStaticCmd(a))
	return root
}

// newBuffer returns an empty buffer configured for this invocation.
func (a *app) newBuffer() *tf2.Buffer {
	return tf2.NewBuffer(
		tf2.WithCacheTime(a.cfg.CacheTime),
		tf2.WithLogger(a.logger),
	)
}

// listen feeds buf from both transform streams until ctx is done.
func (a *app) listen(ctx context.Context, buf *tf2.Buffer) error {
	a.logger.Debug("Opening subscriptions...",
		slog.String("dynamic-topic", a.cfg.DynamicTopic),
		slog.String("static-topic", a.cfg.StaticTopic),
	)
	dynamic, err := pubsub.OpenSubscription(ctx, a.cfg.DynamicTopic)
	if err != nil {
		return fmt.Errorf("open subscription %q: %w", a.cfg.DynamicTopic, err)
	}
	defer shutdown(a.logger, dynamic.Shutdown)
	static, err := pubsub.OpenSubscription(ctx, a.cfg.StaticTopic)
	if err != nil {
		return fmt.Errorf("open subscription %q: %w", a.cfg.StaticTopic, err)
	}
	defer shutdown(a.logger, static.Shutdown)
	a.logger.Info("Subscriptions opened successfully")

	return tfpubsub.NewListener(buf).Run(ctx, dynamic, static)
}

// shutdown releases a subscription or topic, logging failures.
func shutdown(logger *slog.Logger, f func(context.Context) error) {
	if err := f(context.Background()); err != nil {
		logger.Warn("Shutdown failed", slog.Any("error", err))
	}
}
