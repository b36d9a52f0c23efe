package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nstehr/vimy/vimy-perception/agent"
	"github.com/nstehr/vimy/vimy-perception/debugvis"
	"github.com/nstehr/vimy/vimy-perception/logging"
	"github.com/nstehr/vimy/vimy-perception/threat"
)

var (
	replayInput  string
	replayRender []string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded message log and print the final threat layers",
	Long:  "replay feeds a JSONL log of host envelopes through a session and summarizes the published layers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, st, err := runReplay(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "messages=%d ticks=%d cycles=%d skipped=%d errors=%d\n",
			st.Messages, st.Ticks, st.Cycles, st.Skipped, st.Errors)
		tot := a.Manager().Registry().Totals()
		fmt.Fprintf(out, "enemy cost mobile=%.1f static=%.1f threat mobile=%.3f static=%.3f\n",
			tot.MobileCost, tot.StaticCost, tot.MobileThreat, tot.StaticThreat)
		eng := a.Manager().Engine()
		for k := threat.LayerAir; k < threat.LayerCount; k++ {
			peak, covered := layerStats(eng.Layer(k))
			fmt.Fprintf(out, "%-10s max=%8.3f cells=%d\n", k, peak, covered)
		}
		for _, name := range replayRender {
			k, ok := threat.ParseLayerKind(strings.TrimSpace(name))
			if !ok {
				return fmt.Errorf("unknown layer %q", name)
			}
			fmt.Fprintf(out, "\n%s\n%s\n", k, debugvis.Render(eng.Layer(k), eng.Width(), eng.Height(), debugvis.Scale(k)))
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to JSONL message log")
	replayCmd.Flags().StringSliceVar(&replayRender, "render", nil, "Layers to draw (air,surface,amphibious,cloak,shield)")
	replayCmd.MarkFlagRequired("input")
}

// runReplay logs to logOut so stdout stays clean for results.
func runReplay(ctx context.Context, logOut io.Writer) (*agent.Agent, agent.ReplayStats, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, agent.ReplayStats{}, err
	}
	logger, err := setupLogging(cfg, logOut, "")
	if err != nil {
		return nil, agent.ReplayStats{}, err
	}
	f, err := os.Open(replayInput)
	if err != nil {
		return nil, agent.ReplayStats{}, err
	}
	defer f.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	a := agent.New(logging.NewContext(ctx, logger), nil, cfg, nil)
	st, err := a.Replay(ctx, f)
	if err != nil {
		a.Close()
		return nil, st, fmt.Errorf("%s: %w", replayInput, err)
	}
	return a, st, nil
}

func layerStats(l []float32) (peak float32, covered int) {
	for _, v := range l {
		if v > 0 {
			covered++
			peak = max(peak, v)
		}
	}
	return peak, covered
}
