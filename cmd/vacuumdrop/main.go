package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/rescp17/vacuumDrop/internal/logger"
	"github.com/rescp17/vacuumDrop/pkg/session"
)

type rootOptions struct {
	port    int
	verbose bool
}

func main() {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "vacuumdrop",
		Short: "Send text and files to peers on the local network",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logger.New(opts.verbose))
		},
	}

	cmd.PersistentFlags().IntVar(&opts.port, "port", session.DefaultPort, "Port to listen on")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newReceiveCmd(opts),
		newSendCmd(opts),
		newPeersCmd(opts),
		newTextCmd(opts),
		newFileCmd(opts),
		newHistoryCmd(opts),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, cmd, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

var version = "dev"

const defaultBrowseTimeout = 3 * time.Second
