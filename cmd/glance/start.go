package main

import (
	"os"
	"os/signal"

	"github.com/sandevgo/glance/pkg/log"
	"github.com/sandevgo/glance/pkg/srv"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the capture loops and the query console",
	Long:  `Validates configuration, probes the AI backend, then runs the screen and audio producers and the interactive query console until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting glance")

		services, grace := NewServices(ctx, stop)

		srv.StartServices(ctx, services)
		srv.ShutdownServices(ctx, services, grace)

		logger.Info().Msg("glance has been shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
