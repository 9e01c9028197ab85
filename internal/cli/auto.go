package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Altair29/J-GLOW-sub001/internal/autoplay"
	"github.com/Altair29/J-GLOW-sub001/internal/report"
	"github.com/Altair29/J-GLOW-sub001/internal/session"
	"github.com/Altair29/J-GLOW-sub001/internal/sim"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var autoCmd = &cobra.Command{
	Use:   "auto <pack>",
	Short: "Play a pack with an automated strategy",
	Long: `Play a pack without a human. One run prints every decision and the final
report; --runs N prints how the strategy fares across N runs.

Strategies: ` + strings.Join(autoplay.Names, ", "),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		name, _ := cmd.Flags().GetString("strategy")
		seed, _ := cmd.Flags().GetUint64("seed")
		runs, _ := cmd.Flags().GetInt("runs")
		save, _ := cmd.Flags().GetBool("save")
		if runs < 1 {
			return fmt.Errorf("--runs must be at least 1")
		}
		if _, err := autoplay.ByName(name, seed); err != nil {
			return err
		}

		reg, err := loadPacks()
		if err != nil {
			return err
		}
		pack, err := reg.Get(args[0])
		if err != nil {
			return err
		}

		var pub session.Publisher
		if save {
			p, release, err := newPublisher(ctx)
			if err != nil {
				return err
			}
			defer release()
			pub = p
		}
		mgr := session.NewManager(reg, pub, logger)

		out := cmd.OutOrStdout()
		if runs == 1 {
			s, _ := autoplay.ByName(name, seed)
			res, err := autoplay.Play(ctx, mgr, pack, s)
			if err != nil {
				return err
			}
			labels := report.Labels(pack.Config.Gauges)
			for _, st := range res.Steps {
				line := fmt.Sprintf("Turn %2d  %-4s -> %-14s %s", st.Turn, st.ScenarioID, st.ChoiceID, report.Deltas(pack.Config.Gauges, labels, st.Applied))
				fmt.Fprintln(out, strings.TrimRight(line, " "))
				for _, p := range st.Triggered {
					fmt.Fprintf(out, "         consequence of %s: %s\n", p.ScenarioID, report.Deltas(pack.Config.Gauges, labels, p.Deltas))
				}
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, report.Markdown(res.Record))
			if save {
				fmt.Fprintf(out, "\nSaved as %s\n", res.Token)
			}
			logger.Debug("Automated run finished", zap.String("pack", pack.Name), zap.String("strategy", name), zap.String("phase", string(res.Final.Phase)))
			return nil
		}

		sum, err := autoplay.Survey(ctx, mgr, pack, runs, func(i int) autoplay.Strategy {
			s, _ := autoplay.ByName(name, seed+uint64(i))
			return s
		})
		if err != nil {
			return err
		}
		printSummary(cmd, sum, pack.Config.Grader.Tiers)
		return nil
	},
}

func printSummary(cmd *cobra.Command, sum autoplay.Summary, tiers []sim.Tier) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pack %s, strategy %s, %d runs\n\n", sum.Pack, sum.Strategy, sum.Runs)

	completed := 0
	fmt.Fprintln(out, "Ranks:")
	for _, rank := range sum.Ranked(tiers) {
		n := sum.Ranks[rank]
		completed += n
		fmt.Fprintf(out, "  %-3s %4d  %5.1f%%\n", rank, n, percent(n, sum.Runs))
	}
	if completed == 0 {
		fmt.Fprintln(out, "  (no run completed)")
	} else {
		fmt.Fprintf(out, "  mean score %.1f\n", sum.MeanScore)
	}

	if len(sum.Failures) > 0 {
		fmt.Fprintln(out, "\nGame overs:")
		var ids []sim.GaugeID
		for id := range sum.Failures {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			n := sum.Failures[id]
			fmt.Fprintf(out, "  %-12s %4d  %5.1f%%\n", id, n, percent(n, sum.Runs))
		}
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

func init() {
	autoCmd.Flags().String("strategy", "cautious", "Strategy: "+strings.Join(autoplay.Names, ", "))
	autoCmd.Flags().Uint64("seed", 1, "Seed for the random strategy")
	autoCmd.Flags().Int("runs", 1, "Number of runs; more than one prints a summary")
	autoCmd.Flags().Bool("save", false, "Publish finished runs like a played game")
}
