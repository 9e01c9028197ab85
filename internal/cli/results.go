package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/Altair29/J-GLOW-sub001/internal/report"
	"github.com/Altair29/J-GLOW-sub001/internal/store"
	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Look up archived runs",
}

var resultsShowCmd = &cobra.Command{
	Use:   "show <token>",
	Short: "Show the result page for a share token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		width, _ := cmd.Flags().GetInt("width")

		ctx := context.Background()
		repo, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()

		rec, err := repo.Get(ctx, args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no result with token %s", args[0])
		}
		if err != nil {
			return err
		}

		md := report.Markdown(rec)
		if raw {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		out, err := report.Render(md, width)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := context.Background()
		repo, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()

		recs, err := repo.List(ctx, limit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no results)")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TOKEN\tPACK\tPLAYER\tPHASE\tRANK\tSCORE\tPLAYED")
		for _, r := range recs {
			player := r.Strategy
			if player == "" {
				player = "human"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				r.Token, r.Pack, player, r.Phase, r.Rank(), r.Score(), r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	resultsShowCmd.Flags().Bool("raw", false, "Print the Markdown without terminal styling")
	resultsShowCmd.Flags().Int("width", 80, "Wrap width for the rendered page")
	resultsListCmd.Flags().Int("limit", 20, "Maximum runs to list (0 for all)")

	resultsCmd.AddCommand(resultsShowCmd)
	resultsCmd.AddCommand(resultsListCmd)
}
