package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	appevents "github.com/rescp17/vacuumDrop/internal/app_events"
	receiverEvent "github.com/rescp17/vacuumDrop/internal/app_events/receiver"
	"github.com/rescp17/vacuumDrop/internal/logger"
	"github.com/rescp17/vacuumDrop/internal/util"
	"github.com/rescp17/vacuumDrop/pkg/discovery"
	receiverApp "github.com/rescp17/vacuumDrop/pkg/receiver"
	"github.com/rescp17/vacuumDrop/pkg/session"
	"github.com/rescp17/vacuumDrop/pkg/ui"
)

const debugLogFile = "debug.log"

func defaultHistoryPath() string {
	return filepath.Join(util.DefaultDownloadDir(), ".vacuumdrop-history.db")
}

func newReceiveCmd(opts *rootOptions) *cobra.Command {
	var (
		dir         string
		historyPath string
		headless    bool
		noAnnounce  bool
	)
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Start the receiver mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := util.EnsureDirectory(dir); err != nil {
				return err
			}
			sessionCfg := session.DefaultConfig()
			sessionCfg.PreferredPort = opts.port
			if err := sessionCfg.Validate(); err != nil {
				return err
			}
			cfg := receiverApp.Config{Session: sessionCfg, DownloadDir: dir, HistoryPath: historyPath}

			var adapter discovery.Adapter = &discovery.MDNSAdapter{}
			if noAnnounce {
				adapter = nil
			}

			if headless {
				return runHeadlessReceiver(cmd.Context(), cfg, adapter)
			}

			log, closer, err := logger.NewFile(debugLogFile, opts.verbose)
			if err != nil {
				return err
			}
			defer closer.Close()
			slog.SetDefault(log)

			p := tea.NewProgram(ui.InitialModel(ui.Receiver, ui.Options{
				Receiver: cfg,
				Adapter:  adapter,
				Logger:   log,
			}))
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", util.DefaultDownloadDir(), "Directory received files are written to")
	cmd.Flags().StringVar(&historyPath, "history", defaultHistoryPath(), "History database file, empty to disable")
	cmd.Flags().BoolVar(&headless, "headless", false, "Run without the terminal UI")
	cmd.Flags().BoolVar(&noAnnounce, "no-announce", false, "Do not announce the receiver over mDNS")
	return cmd
}

// runHeadlessReceiver prints UI messages as plain lines until ctx is done.
func runHeadlessReceiver(ctx context.Context, cfg receiverApp.Config, adapter discovery.Adapter) error {
	app := receiverApp.NewApp(cfg, adapter, slog.Default())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Run(ctx, cancel)
	}()

	var lastErr error
	for {
		select {
		case <-done:
			return lastErr
		case msg := <-app.UIMessages():
			switch msg := msg.(type) {
			case receiverEvent.ServerStartedMsg:
				fmt.Printf("Listening on port %d as %s, saving to %s\n", msg.Port, msg.Name, msg.Dir)
			case receiverEvent.ClientsChangedMsg:
				fmt.Printf("Active connections: %d\n", msg.Count)
			case receiverEvent.TextReceivedMsg:
				fmt.Printf("[%s] %s\n", msg.From, msg.Text)
			case receiverEvent.FileReceivedMsg:
				fmt.Printf("Received %s (%s) from %s -> %s\n", msg.FileName, util.FormatSize(msg.Size), msg.From, msg.Path)
			case receiverEvent.TransferFailedMsg:
				fmt.Printf("Transfer of %q from %s failed: %v\n", msg.FileName, msg.From, msg.Err)
			case receiverEvent.StatusUpdateMsg:
				fmt.Println(msg.Message)
			case appevents.AppErrorMsg:
				lastErr = msg.Err
				fmt.Println("Error:", msg.Err)
			}
		}
	}
}
