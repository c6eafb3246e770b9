package main

import (
	"context"
	"os"

	"github.com/sandevgo/glance/internal/config"
	"github.com/sandevgo/glance/pkg/log"
	"github.com/spf13/cobra"
)

var (
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "glance",
	Short: "Glance — a context-aware meeting assistant",
	Long:  `Glance watches your screen and listens to meeting audio, and answers questions against that rolling context.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	isDebug := debug || config.IsDebug()
	return log.NewContextWithLogger(ctx, isDebug)
}
