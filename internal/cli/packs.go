package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/Altair29/J-GLOW-sub001/internal/content"
	"github.com/spf13/cobra"
)

var packsCmd = &cobra.Command{
	Use:   "packs",
	Short: "List and validate scenario packs",
}

var packsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available packs",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadPacks()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTURNS\tGAUGES\tTITLE")
		for _, p := range reg.List() {
			var ids []string
			for _, g := range p.Config.Gauges {
				ids = append(ids, string(g.ID))
			}
			turns := min(p.Config.TotalTurns, len(p.Scenarios))
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", p.Name, turns, strings.Join(ids, ","), p.Title)
		}
		return w.Flush()
	},
}

var packsValidateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Run Tier 0 + Tier 1 validation against pack files",
	Long: `Validate pack YAML files. With no arguments, validates every *.yaml in
JGLOW_CONTENT_DIR (the built-in packs are validated when they load).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files := args
		if len(files) == 0 {
			if cfg.ContentDir == "" {
				if _, err := loadPacks(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Built-in packs: PASSED")
				return nil
			}
			for _, pattern := range []string{"*.yaml", "*.yml"} {
				matches, err := filepath.Glob(filepath.Join(cfg.ContentDir, pattern))
				if err != nil {
					return err
				}
				files = append(files, matches...)
			}
		}

		failed := 0
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			ok, err := validateFile(cmd, path, data)
			if err != nil {
				return err
			}
			if !ok {
				failed++
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%d passed, %d failed\n", len(files)-failed, failed)
		if failed > 0 {
			return fmt.Errorf("%d pack(s) failed validation", failed)
		}
		return nil
	},
}

func validateFile(cmd *cobra.Command, path string, data []byte) (bool, error) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n", path)

	f, err := content.Parse(data)
	if err != nil {
		fmt.Fprintf(out, "  Parse: FAILED: %v\n", err)
		return false, nil
	}

	r0 := content.Tier0Structural(f)
	fmt.Fprintf(out, "  Tier 0 (Structural): %s\n", formatValidationResult(r0))
	if !r0.Passed {
		return false, nil
	}
	r1 := content.Tier1References(f)
	fmt.Fprintf(out, "  Tier 1 (References): %s\n", formatValidationResult(r1))
	if !r1.Passed {
		return false, nil
	}

	if _, err := content.Compile(f); err != nil {
		fmt.Fprintf(out, "  Compile: FAILED: %v\n", err)
		return false, nil
	}
	return true, nil
}

func formatValidationResult(r *content.ValidationResult) string {
	result := "PASSED"
	if !r.Passed {
		result = fmt.Sprintf("FAILED (code %d): %s", r.Code, r.Message)
	}
	for _, d := range r.Details {
		if d.Passed || d.Fix == "" {
			continue
		}
		kind := "Fix"
		if d.Warning {
			kind = "Warning"
		}
		where := ""
		if d.Where != "" {
			where = " [" + d.Where + "]"
		}
		result += fmt.Sprintf("\n    %s%s: %s", kind, where, d.Fix)
	}
	return result
}

func init() {
	packsCmd.AddCommand(packsListCmd)
	packsCmd.AddCommand(packsValidateCmd)
}
