package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rescp17/vacuumDrop/internal/style"
	"github.com/rescp17/vacuumDrop/internal/util"
	"github.com/rescp17/vacuumDrop/pkg/history"
)

func newHistoryCmd(_ *rootOptions) *cobra.Command {
	var (
		limit       int
		historyPath string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show what this machine has received",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(historyPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("Nothing received yet.")
				return nil
			}
			for _, e := range entries {
				when := e.ReceivedAt.Local().Format("2006-01-02 15:04:05")
				switch {
				case e.Failed():
					fmt.Printf("%s %s %s from %s: %s\n", when, style.ErrorStyle.Render("failed"), e.FileName, e.Peer, e.Error)
				case e.Kind == history.KindText:
					fmt.Printf("%s text from %s: %s\n", when, e.Peer, e.Text)
				default:
					fmt.Printf("%s %s (%s) from %s -> %s\n", when, e.FileName, util.FormatSize(e.FileSize), e.Peer, e.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")
	cmd.Flags().StringVar(&historyPath, "history", defaultHistoryPath(), "History database file")
	return cmd
}
