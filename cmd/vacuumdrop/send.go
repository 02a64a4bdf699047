package main

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/rescp17/vacuumDrop/internal/logger"
	"github.com/rescp17/vacuumDrop/internal/style"
	"github.com/rescp17/vacuumDrop/internal/util"
	"github.com/rescp17/vacuumDrop/pkg/discovery"
	"github.com/rescp17/vacuumDrop/pkg/fileInfo"
	"github.com/rescp17/vacuumDrop/pkg/transfer"
	"github.com/rescp17/vacuumDrop/pkg/ui"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Start the sender mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closer, err := logger.NewFile(debugLogFile, opts.verbose)
			if err != nil {
				return err
			}
			defer closer.Close()
			slog.SetDefault(log)

			p := tea.NewProgram(ui.InitialModel(ui.Sender, ui.Options{
				Transfer: transfer.DefaultTransferConfig(),
				Logger:   log,
			}))
			_, err = p.Run()
			return err
		},
	}
}

func newPeersCmd(_ *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List receivers announced on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := discovery.Browse(cmd.Context(), &discovery.MDNSAdapter{}, timeout)
			if err != nil {
				return err
			}
			services := registry.Snapshot()
			if len(services) == 0 {
				fmt.Println("No receivers found.")
				return nil
			}
			const nameWidth = 48
			fmt.Println(style.LabelStyle.Render(util.PadRight("NAME", nameWidth) + "ADDRESS"))
			for _, svc := range services {
				fmt.Println(util.PadRight(svc.Name, nameWidth) + svc.Endpoint().Addr())
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultBrowseTimeout, "How long to browse")
	return cmd
}

// resolveTarget accepts host:port directly and otherwise browses for a
// receiver with that service name.
func resolveTarget(cmd *cobra.Command, target string) (transfer.Endpoint, error) {
	if host, portStr, err := net.SplitHostPort(target); err == nil {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return transfer.Endpoint{}, fmt.Errorf("invalid port in %q: %w", target, err)
		}
		return transfer.Endpoint{Host: host, Port: port}, nil
	}

	registry, err := discovery.Browse(cmd.Context(), &discovery.MDNSAdapter{}, defaultBrowseTimeout)
	if err != nil {
		return transfer.Endpoint{}, err
	}
	svc, ok := registry.Lookup(target)
	if !ok {
		return transfer.Endpoint{}, fmt.Errorf("%w: no receiver named %q", transfer.ErrNoEndpointSelected, target)
	}
	return svc.Endpoint(), nil
}

func newTextCmd(_ *rootOptions) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "text <message>",
		Short: "Send a text message to a receiver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.Default()
			endpoint, err := resolveTarget(cmd, to)
			if err != nil {
				return err
			}
			outcome, err := transfer.NewSender(nil, nil, log).SendText(cmd.Context(), endpoint, args[0])
			if err != nil {
				return err
			}
			if outcome.Message != "" {
				fmt.Println(style.SuccessStyle.Render(outcome.Message))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Receiver service name or host:port")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newFileCmd(_ *rootOptions) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Send a file, or every file under a directory, to a receiver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.Default()
			node, err := fileInfo.CreateNode(args[0])
			if err != nil {
				return err
			}
			endpoint, err := resolveTarget(cmd, to)
			if err != nil {
				return err
			}

			sender := transfer.NewSender(nil, nil, log)
			for _, file := range node.Files() {
				src, err := file.Source()
				if err != nil {
					return err
				}
				bar := progressbar.NewOptions(100,
					progressbar.OptionSetDescription(file.Name),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
				_, err = sender.SendFile(cmd.Context(), endpoint, src, func(percent float64) {
					_ = bar.Set(int(percent))
				})
				_ = bar.Finish()
				if err != nil {
					return fmt.Errorf("sending %s: %w", file.Name, err)
				}
				fmt.Printf("%s %s (%s)\n", style.SuccessStyle.Render("sent"), file.Name, util.FormatSize(file.Size))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Receiver service name or host:port")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
