package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"biblegen/config"
	"biblegen/internal/adapter/fs"
	"biblegen/internal/adapter/store"
	"biblegen/internal/adapter/watcher"
	"biblegen/internal/domain"
	"biblegen/internal/logging"
	"biblegen/internal/port"
	"biblegen/internal/usecase"
)

var (
	buildDatasets      []string
	buildOut           string
	buildJaccard       float64
	buildLev           float64
	buildMinify        bool
	buildGzip          bool
	buildXz            bool
	buildZstd          bool
	buildSchemaVersion string
	buildBaseURL       string
	buildNoFallback    bool
	buildNoHTML        bool
	buildSQLite        bool
	buildRedirects     bool
	buildVersification map[string]string
	buildFormats       map[string]string
	buildWatch         bool
	buildQuiet         bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Generate the JSON API, HTML site and cross references",
	Long: `Parse every dataset, map verse references across versions and write the
static output. The build store is kept in <out>/.biblegen/build.db.

Datasets come from --datasets, then datasets.paths in the config, then a
scan of datasets.dir. The version code of a dataset is its file stem.

Examples:
  biblegen build                                   # Scan ./datasets
  biblegen build --datasets kjv.txt --datasets web.txt --gzip-json
  biblegen build --versification kjv=kjv --watch`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	f := buildCmd.Flags()
	f.StringSliceVar(&buildDatasets, "datasets", nil, "dataset files (repeatable)")
	f.StringVarP(&buildOut, "out", "o", "", "output directory (default from config)")
	f.Float64Var(&buildJaccard, "threshold-jaccard", 0, "Jaccard similarity threshold")
	f.Float64Var(&buildLev, "threshold-lev", 0, "normalized Levenshtein similarity threshold")
	f.BoolVar(&buildMinify, "minify-json", false, "write compact JSON")
	f.BoolVar(&buildGzip, "gzip-json", false, "also write .json.gz sidecars")
	f.BoolVar(&buildXz, "xz-json", false, "also write .json.xz sidecars")
	f.BoolVar(&buildZstd, "zstd-json", false, "also write .json.zst sidecars")
	f.StringVar(&buildSchemaVersion, "schema-version", "", "API schema version")
	f.StringVar(&buildBaseURL, "base-url", "", "absolute site URL for canonical links and the sitemap")
	f.BoolVar(&buildNoFallback, "no-fallback", false, "disable textual alignment of unresolved references")
	f.BoolVar(&buildNoHTML, "no-html", false, "skip HTML pages, sitemap and robots.txt")
	f.BoolVar(&buildSQLite, "sqlite", false, "also export bible.sqlite")
	f.BoolVar(&buildRedirects, "redirects", false, "write per-verse redirect pages")
	f.StringToStringVar(&buildVersification, "versification", nil, "version=scheme pairs")
	f.StringToStringVar(&buildFormats, "format", nil, "version=format pairs overriding detection")
	f.BoolVar(&buildWatch, "watch", false, "rebuild when dataset files change")
	f.BoolVarP(&buildQuiet, "quiet", "q", false, "no progress bar; only warnings on stderr")
	buildCmd.MarkFlagsMutuallyExclusive("gzip-json", "xz-json", "zstd-json")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if err := applyBuildFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.EnsureStateDir(cfg.Output.Dir); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	dbPath := config.BuildDBPath(cfg.Output.Dir)
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open build store: %w", err)
	}
	defer st.Close()

	if err := buildOnce(ctx, cfg, st); err != nil {
		return err
	}
	if !buildWatch {
		return nil
	}
	return watchAndRebuild(ctx, cfg, st)
}

func applyBuildFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("datasets") {
		cfg.Datasets.Paths = nil
		for _, p := range buildDatasets {
			abs, err := filepath.Abs(p)
			if err != nil {
				return fmt.Errorf("invalid dataset path: %w", err)
			}
			cfg.Datasets.Paths = append(cfg.Datasets.Paths, abs)
		}
	}
	if flags.Changed("out") {
		abs, err := filepath.Abs(buildOut)
		if err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
		cfg.Output.Dir = abs
	}
	if flags.Changed("threshold-jaccard") {
		cfg.Mapper.JaccardThreshold = buildJaccard
	}
	if flags.Changed("threshold-lev") {
		cfg.Mapper.LevenshteinThreshold = buildLev
	}
	if flags.Changed("minify-json") {
		cfg.Output.MinifyJSON = buildMinify
	}
	switch {
	case buildGzip:
		cfg.Output.Compression = "gzip"
	case buildXz:
		cfg.Output.Compression = "xz"
	case buildZstd:
		cfg.Output.Compression = "zstd"
	}
	if buildSchemaVersion != "" {
		cfg.Output.SchemaVersion = buildSchemaVersion
	}
	if buildBaseURL != "" {
		cfg.Output.BaseURL = buildBaseURL
	}
	if buildNoFallback {
		cfg.Mapper.Fallback = false
	}
	if buildNoHTML {
		cfg.Output.HTML = false
	}
	if buildSQLite {
		cfg.Output.SQLite = true
	}
	if buildRedirects {
		cfg.Output.Redirects = true
	}
	if len(buildVersification) > 0 && cfg.Datasets.Versification == nil {
		cfg.Datasets.Versification = make(map[string]string)
	}
	for version, scheme := range buildVersification {
		cfg.Datasets.Versification[version] = scheme
	}
	if len(buildFormats) > 0 && cfg.Datasets.Formats == nil {
		cfg.Datasets.Formats = make(map[string]string)
	}
	for version, format := range buildFormats {
		cfg.Datasets.Formats[version] = format
	}
	return nil
}

// findDatasets prefers explicit paths over a directory scan.
func findDatasets(cfg *config.Config) ([]port.Dataset, error) {
	if len(cfg.Datasets.Paths) > 0 {
		datasets := make([]port.Dataset, 0, len(cfg.Datasets.Paths))
		for _, p := range cfg.Datasets.Paths {
			if _, err := os.Stat(p); err != nil {
				return nil, fmt.Errorf("dataset does not exist: %w", err)
			}
			datasets = append(datasets, fs.DatasetFor(p))
		}
		return datasets, nil
	}

	var finder port.DatasetFinder = fs.NewWalker(cfg.Datasets.Includes, cfg.Datasets.Excludes)
	datasets, err := finder.Find(cfg.Datasets.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", cfg.Datasets.Dir, err)
	}
	if len(datasets) == 0 {
		return nil, fmt.Errorf("no datasets found in %s", cfg.Datasets.Dir)
	}
	return datasets, nil
}

func buildOnce(ctx context.Context, cfg *config.Config, st port.BuildStore) error {
	datasets, err := findDatasets(cfg)
	if err != nil {
		return err
	}

	minLevel := logging.LevelDebug
	if buildQuiet {
		minLevel = logging.LevelWarn
	}
	uc := usecase.NewBuildUseCase(cfg, st, consoleHandler(minLevel))

	var progress usecase.ProgressFunc
	if !buildQuiet {
		progress = newProgress("Parsing")
	}

	fmt.Printf("Building %d dataset(s) into %s...\n", len(datasets), cfg.Output.Dir)
	result, err := uc.Build(ctx, datasets, progress)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	printBuildResult(result)
	return nil
}

// newProgress returns a callback drawing a progress bar with an ETA. The
// bar is created on the first call, once the total is known.
func newProgress(label string) usecase.ProgressFunc {
	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	return func(processed, total int, current string) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 && processed < total {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-processed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] %s ETA: %s", label, filepath.Base(current), formatDuration(eta)))
			}
		}
	}
}

func printBuildResult(r *usecase.BuildResult) {
	if r.Rebuilt {
		fmt.Printf("Stored cross references cleared: %s\n", r.RebuildReason)
	}

	fmt.Printf("\nBuild complete (%s):\n", r.Report.BuildID)
	fmt.Printf("  Versions:        %d\n", r.Datasets)
	fmt.Printf("  Books:           %d\n", r.Report.Summary.Processed.Books)
	fmt.Printf("  Chapters:        %d\n", r.Report.Summary.Processed.Chapters)
	fmt.Printf("  Verses:          %d\n", r.Report.Summary.Processed.Verses)
	fmt.Printf("  HTML pages:      %d\n", r.PagesWritten)
	fmt.Printf("  References:      %d\n", r.Summary.TotalReferences)
	fmt.Printf("  Mapped / nulls:  %d / %d\n", r.Summary.FullyMapped, r.Summary.WithNulls)
	fmt.Printf("  Coverage:        %.2f%%\n", r.Summary.CoverageRate*100)
	fmt.Printf("  Conflicts:       %d\n", r.Summary.WithConflicts)
	for _, t := range domain.ConflictTypes {
		if n := r.Summary.ConflictsByType[t]; n > 0 {
			fmt.Printf("    %-8s       %d\n", t, n)
		}
	}
	if len(r.Summary.NullReasons) > 0 {
		kinds := make([]string, 0, len(r.Summary.NullReasons))
		for k := range r.Summary.NullReasons {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Printf("  Null reasons:\n")
		for _, k := range kinds {
			fmt.Printf("    %-24s %d\n", k, r.Summary.NullReasons[k])
		}
	}
	if r.SQLitePath != "" {
		fmt.Printf("  SQLite:          %s\n", r.SQLitePath)
	}
	fmt.Printf("  crossrefs.json:  %s\n", r.CrossRefsSHA256)
	if r.Deterministic != nil {
		if *r.Deterministic {
			fmt.Printf("  Deterministic:   yes (matches previous build)\n")
		} else {
			fmt.Printf("  Deterministic:   NO (differs from previous build)\n")
		}
	}

	if len(r.InvalidDatasets) > 0 || r.Report.Summary.Errors > 0 || r.Report.Summary.Warnings > 0 {
		fmt.Printf("\nDiagnostics: %d error(s), %d warning(s)\n", r.Report.Summary.Errors, r.Report.Summary.Warnings)
		for _, v := range r.InvalidDatasets {
			fmt.Printf("  - %s has validation errors\n", v)
		}
	}
	fmt.Printf("\nBuild log: %s\n", r.Report.LogFile)
}

// watchAndRebuild rebuilds after every batch of dataset changes until the
// context is cancelled. A failed rebuild is reported and watching goes on.
func watchAndRebuild(ctx context.Context, cfg *config.Config, st port.BuildStore) error {
	logger := logging.GetLogger()

	w, err := watcher.New([]string{".txt"}, watcher.DefaultDebounce, logger)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	dirs := watchDirs(cfg)
	batches, err := w.Watch(ctx, dirs)
	if err != nil {
		return fmt.Errorf("failed to watch datasets: %w", err)
	}
	fmt.Printf("\nWatching %v for changes (Ctrl+C to stop)\n", dirs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			logger.Info("datasets changed", "files", batch.Paths)
			if err := buildOnce(ctx, cfg, st); err != nil {
				logger.Error("rebuild failed", "error", err)
			}
		}
	}
}

func watchDirs(cfg *config.Config) []string {
	if len(cfg.Datasets.Paths) == 0 {
		return []string{cfg.Datasets.Dir}
	}
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range cfg.Datasets.Paths {
		d := filepath.Dir(p)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
