// Command autorole grants Discord roles from 10FastFingers profiles.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/autorole/pkg/logger"
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "autorole",
		Short: "Assign typing-speed roles from 10FastFingers profiles",
		Long: `autorole reads a member's public 10FastFingers profile and brings their
speed, tier and flag roles in line with it. Requests of one guild are handled
one at a time, in arrival order.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newReconcileCmd())
	return root
}
