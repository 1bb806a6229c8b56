package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"biblegen/config"
	"biblegen/internal/adapter/store"
	"biblegen/internal/usecase"
)

var (
	lookupOut  string
	lookupJSON bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <Book.Chapter.Verse>",
	Short: "Show how one reference maps into every version",
	Long: `Look up a canonical reference in the cross references of the last build.

Examples:
  biblegen lookup Genesis.1.1
  biblegen lookup "Song of Solomon.2.1" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().StringVarP(&lookupOut, "out", "o", "", "output directory of the build (default from config)")
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "output as JSON")
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	outDir := cfg.Output.Dir
	if lookupOut != "" {
		outDir = lookupOut
	}

	dbPath := config.BuildDBPath(outDir)
	if !fileExists(dbPath) {
		return fmt.Errorf("no build found. Run 'biblegen build' first")
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open build store: %w", err)
	}
	defer st.Close()

	res, err := usecase.NewLookupUseCase(st).Lookup(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if lookupJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	versions := make([]string, 0, len(res.Entries))
	for v := range res.Entries {
		versions = append(versions, v)
	}
	sort.Strings(versions)

	fmt.Println(res.Canonical)
	for _, v := range versions {
		e := res.Entries[v]
		if ref, ok := e.Ref(); ok {
			fmt.Printf("  %-6s %s\n", v, ref)
		} else {
			fmt.Printf("  %-6s - (%s)\n", v, e.Reason())
		}
	}
	return nil
}
