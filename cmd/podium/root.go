package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayusman/podium/internal/app"
	"github.com/ayusman/podium/internal/config"
	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "podium",
	Short: "Hands-free slideshow control with webcam gestures",
	Long: `Podium authenticates the presenter by face, then drives a slideshow with
hand gestures: peace sign starts, thumbs down goes forward, thumbs up goes
back and an open palm ends. A sad expression pauses the slideshow.

Settings are read from PODIUM_* environment variables. Press q in any
window to quit.`,
	Version:       Version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		a, err := app.New(cfg, app.DefaultDeps())
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Run(cmd.Context())
	},
}

// Execute runs the root command with a context cancelled by SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
