package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"biblegen/config"
	"biblegen/internal/adapter/store"
	"biblegen/internal/logging"
	"biblegen/internal/port"
	"biblegen/internal/usecase"
)

var (
	validateOut  string
	validateJSON bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a generated output directory",
	Long: `Validate-only mode: parse every JSON document under the output directory,
check chapter documents for required fields, check the cross-reference
metrics and the configured size budgets, and compare crossrefs.json with the
last recorded build of the same sources and configuration.

Examples:
  biblegen validate
  biblegen validate --out ./public --json`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateOut, "out", "o", "", "output directory (default from config)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "output as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if validateOut != "" {
		abs, err := filepath.Abs(validateOut)
		if err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
		cfg.Output.Dir = abs
	}

	// The build store is optional here; without it the determinism check
	// is skipped.
	var st port.BuildStore
	if dbPath := config.BuildDBPath(cfg.Output.Dir); fileExists(dbPath) {
		bolt, err := store.NewBoltStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open build store: %w", err)
		}
		defer bolt.Close()
		st = bolt
	}

	report, err := usecase.NewValidateUseCase(cfg, st, logging.GetLogger()).Validate()
	if err != nil {
		return err
	}

	if validateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printValidateReport(report)
	}

	if !report.OK() {
		return fmt.Errorf("validation failed: %d violation(s)", len(report.Violations))
	}
	return nil
}

func printValidateReport(r *usecase.ValidateReport) {
	fmt.Printf("Checked %d JSON file(s), %d chapter(s)\n", r.FilesChecked, r.ChapterFiles)
	if r.Metrics != nil {
		fmt.Printf("Cross references: %d total, %d mapped, %d nulls, %d conflicts, coverage %.2f%%\n",
			r.Metrics.Total, r.Metrics.Mapped, r.Metrics.Nulls, r.Metrics.Conflicts, r.Metrics.Coverage*100)
	}
	if r.Deterministic != nil {
		fmt.Printf("Matches build %s: %v\n", r.ComparedBuildID, *r.Deterministic)
	}
	if r.OK() {
		fmt.Println("OK")
		return
	}
	fmt.Printf("\nViolations:\n")
	for _, v := range r.Violations {
		fmt.Printf("  - %s: %s\n", v.Path, v.Message)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
