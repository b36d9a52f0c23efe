package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const banner = `
██╗   ██╗██╗███╗   ███╗██╗   ██╗
██║   ██║██║████╗ ████║╚██╗ ██╔╝
██║   ██║██║██╔████╔██║ ╚████╔╝
╚██╗ ██╔╝██║██║╚██╔╝██║  ╚██╔╝
 ╚████╔╝ ██║██║ ╚═╝ ██║   ██║
  ╚═══╝  ╚═╝╚═╝     ╚═╝   ╚═╝

Enemy Perception & Threat Fields`

var configPath string

var rootCmd = &cobra.Command{
	Use:           "vimy",
	Short:         "Enemy tracking and threat field sidecar",
	Long:          "vimy tracks enemy units reported by the game host and maintains per-domain threat fields for them.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (defaults apply when empty)")
	rootCmd.AddCommand(serveCmd, replayCmd, viewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
