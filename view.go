package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/nstehr/vimy/vimy-perception/debugvis"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse the threat layers of a replayed log",
	RunE: func(cmd *cobra.Command, args []string) error {
		// The TUI owns the terminal; keep logs out of it.
		a, _, err := runReplay(cmd.Context(), io.Discard)
		if err != nil {
			return err
		}
		defer a.Close()
		return debugvis.Run(a.Manager().Engine(), replayInput)
	},
}

func init() {
	viewCmd.Flags().StringVar(&replayInput, "input", "", "Path to JSONL message log")
	viewCmd.MarkFlagRequired("input")
}
