// Command tf2 inspects and feeds the transform streams of a robot.
//
// Usage:
//
//	tf2 echo TARGET SOURCE   print the transform from SOURCE to TARGET
//	tf2 frames               print every frame received, as YAML
//	tf2 static               publish static transforms
//
// The streams are gocloud.dev/pubsub URLs, configured with flags, a YAML
// configuration file, or TF2_ environment variables (e.g. TF2_DYNAMIC_TOPIC).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// Drivers for the pubsub URLs of the transform streams.
	_ "gocloud.dev/pubsub/mempubsub"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
