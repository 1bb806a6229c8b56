package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"sort"
	"time"

	"biblegen/config"
	"biblegen/internal/adapter/compress"
	"biblegen/internal/adapter/fs"
	"biblegen/internal/adapter/jsonapi"
	"biblegen/internal/adapter/mapper"
	"biblegen/internal/adapter/parser"
	"biblegen/internal/adapter/site"
	"biblegen/internal/adapter/sqlite"
	"biblegen/internal/adapter/store"
	"biblegen/internal/adapter/validation"
	"biblegen/internal/domain"
	"biblegen/internal/logging"
	"biblegen/internal/port"
)

// ProgressFunc is called after each dataset is parsed.
type ProgressFunc func(processed, total int, current string)

// BuildUseCase runs the whole generation pipeline: parse, validate, map,
// and write every output artifact.
type BuildUseCase struct {
	cfg     *config.Config
	store   port.BuildStore
	console slog.Handler
	parser  *parser.Parser
	clock   func() time.Time
}

// NewBuildUseCase wires a build. console receives the build log records in
// addition to the JSONL file and may be nil.
func NewBuildUseCase(cfg *config.Config, st port.BuildStore, console slog.Handler) *BuildUseCase {
	return &BuildUseCase{
		cfg:     cfg,
		store:   st,
		console: console,
		parser:  parser.NewParser(),
		clock:   time.Now,
	}
}

// BuildResult contains the results of a build.
type BuildResult struct {
	Report          logging.Report
	Datasets        int
	InvalidDatasets []string
	ChaptersWritten int
	PagesWritten    int
	Summary         mapper.Summary
	Metrics         domain.MappingMetrics
	CrossRefsSHA256 string
	ManifestSHA256  string
	SQLitePath      string
	// Rebuilt is set when the stored snapshot was discarded because the
	// mapping configuration changed.
	Rebuilt       bool
	RebuildReason string
	// Deterministic is nil when there was no comparable earlier build.
	Deterministic *bool
	LogsRotated   int
}

// Build processes datasets into the configured output directory.
func (u *BuildUseCase) Build(ctx context.Context, datasets []port.Dataset, progress ProgressFunc) (*BuildResult, error) {
	if len(datasets) == 0 {
		return nil, &domain.ValidationError{Field: "datasets", Message: "no datasets to build"}
	}
	codec, err := compress.ParseCodec(u.cfg.Output.Compression)
	if err != nil {
		return nil, err
	}

	bl, err := logging.OpenBuildLog(u.cfg.Logging.Dir, u.console)
	if err != nil {
		return nil, err
	}
	defer bl.Close()
	log := bl.Logger()

	result := &BuildResult{}
	configHash := store.ComputeConfigHash(u.cfg)

	check, err := u.store.CheckSchema(configHash)
	if err != nil {
		return nil, err
	}
	if check.NeedsRebuild {
		log.Info("clearing stored cross references", "reason", check.Reason)
		if err := u.store.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear build store: %w", err)
		}
		result.Rebuilt = true
		result.RebuildReason = check.Reason
	}
	if check.NeedsMigration || check.NeedsRebuild {
		if err := u.store.Migrate(configHash); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	// Chapters are stamped with the (possibly pinned) build time.
	buildTime := u.cfg.BuildTime(u.clock()).UTC()
	u.parser.Clock = func() time.Time { return buildTime }

	corpus, invalid, err := u.loadCorpus(ctx, log, datasets, progress)
	if err != nil {
		return nil, err
	}
	result.Datasets = len(corpus)
	result.InvalidDatasets = invalid

	xref, m, err := u.generate(log, corpus)
	if err != nil {
		return nil, err
	}
	result.Metrics = *xref.Metrics
	result.Summary = m.Summarize(xref)
	logSummary(log, result.Summary, xref)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outDir := u.cfg.Output.Dir
	api := jsonapi.NewWriter(outDir, jsonapi.Options{
		SchemaVersion: u.cfg.Output.SchemaVersion,
		Minify:        u.cfg.Output.MinifyJSON,
		Compression:   codec,
		VersionName:   parser.VersionDisplayName,
	})

	if result.ChaptersWritten, err = api.WriteCorpus(corpus); err != nil {
		return nil, err
	}
	if _, err := api.WriteVersions(corpus); err != nil {
		return nil, err
	}
	if _, err := api.WriteBooks(corpus); err != nil {
		return nil, err
	}
	_, xrefSHA, err := api.WriteCrossRefs(xref)
	if err != nil {
		return nil, err
	}
	result.CrossRefsSHA256 = xrefSHA

	paths := make([]string, len(datasets))
	for i, ds := range datasets {
		paths[i] = ds.Path
	}
	checksums, err := jsonapi.SourceChecksums(paths)
	if err != nil {
		return nil, err
	}

	result.ManifestSHA256, err = api.WriteManifest(jsonapi.ManifestInput{
		BuildTime:       buildTime,
		Versions:        corpus.Versions(),
		SourceChecksums: checksums,
		Thresholds:      &result.Metrics.SimilarityThresholds,
		Versification:   xref.Versification,
		CrossRefsSHA256: xrefSHA,
	})
	if err != nil {
		return nil, err
	}
	log.Info("json api written", "dir", outDir, "chapters", result.ChaptersWritten, "crossrefs_sha256", xrefSHA)

	if u.cfg.Output.HTML {
		if result.PagesWritten, err = u.writeSite(corpus, xref); err != nil {
			return nil, err
		}
		log.Info("site written", "pages", result.PagesWritten)
	}

	if u.cfg.Output.SQLite {
		result.SQLitePath = filepath.Join(outDir, sqlite.FileName)
		if err := sqlite.Export(ctx, result.SQLitePath, corpus, xref); err != nil {
			return nil, err
		}
		log.Info("sqlite export written", "path", result.SQLitePath)
	}

	result.Deterministic = u.compareWithLast(log, configHash, checksums, xrefSHA)

	if err := u.store.PutCrossRefs(xref); err != nil {
		return nil, fmt.Errorf("failed to store cross references: %w", err)
	}
	if err := u.store.PutBuild(domain.BuildRecord{
		ID:              bl.ID,
		Timestamp:       u.clock().UTC(),
		ConfigHash:      configHash,
		SourceChecksums: checksums,
		CrossRefsSHA256: xrefSHA,
		Metrics:         xref.Metrics,
		Stats:           corpus.Stats(),
	}); err != nil {
		return nil, fmt.Errorf("failed to record build: %w", err)
	}

	result.Report, err = bl.Report(corpus.Stats())
	if err != nil {
		return nil, err
	}
	if err := bl.Close(); err != nil {
		return nil, err
	}

	result.LogsRotated, err = logging.RotateLogs(u.cfg.Logging.Dir, u.cfg.Logging.KeepBuilds)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// loadCorpus parses and validates every dataset. Validation errors are
// logged and the dataset is kept; a read failure aborts the build.
func (u *BuildUseCase) loadCorpus(ctx context.Context, log *slog.Logger, datasets []port.Dataset, progress ProgressFunc) (domain.Corpus, []string, error) {
	corpus := make(domain.Corpus, len(datasets))
	var invalid []string

	for i, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		content, err := fs.ReadFile(ds.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read dataset %s: %w", ds.Path, err)
		}

		format, err := u.formatFor(ds.Version, content)
		if err != nil {
			return nil, nil, err
		}

		src := u.parser.ParseSourceText(content, format, ds.Version)
		res := validation.ValidateDataset(src)
		for _, issue := range res.Errors {
			log.Error(issue.Message, issueAttrs(issue)...)
		}
		for _, issue := range res.Warnings {
			log.Warn(issue.Message, issueAttrs(issue)...)
		}
		if !res.Valid {
			invalid = append(invalid, ds.Version)
		}

		if _, dup := corpus[ds.Version]; dup {
			log.Warn("duplicate version code, later dataset replaces earlier", "version", ds.Version, "path", ds.Path)
		}
		corpus[ds.Version] = u.parser.BuildChapters(src, format)

		log.Info("dataset processed",
			"version", ds.Version,
			"format", format.String(),
			"path", ds.Path,
			"books", res.Statistics.TotalBooks,
			"chapters", res.Statistics.TotalChapters,
			"verses", res.Statistics.TotalVerses,
		)
		if progress != nil {
			progress(i+1, len(datasets), ds.Path)
		}
	}
	return corpus, invalid, nil
}

func (u *BuildUseCase) formatFor(version, content string) (parser.Format, error) {
	if name, ok := u.cfg.Datasets.Formats[version]; ok {
		f, err := parser.ParseFormat(name)
		if err != nil {
			return f, fmt.Errorf("dataset %s: %w", version, err)
		}
		return f, nil
	}
	return parser.DetectFormat(content, version), nil
}

func issueAttrs(issue validation.Issue) []any {
	attrs := []any{"version", issue.Context.Version}
	if issue.Context.Book != "" {
		attrs = append(attrs, "book", issue.Context.Book)
	}
	if issue.Context.Chapter != 0 {
		attrs = append(attrs, "chapter", issue.Context.Chapter)
	}
	if issue.Context.Verse != "" {
		attrs = append(attrs, "verse", issue.Context.Verse)
	}
	return attrs
}

func (u *BuildUseCase) generate(log *slog.Logger, corpus domain.Corpus) (*domain.CrossReferenceMap, *mapper.Mapper, error) {
	m := mapper.New(mapper.NewConfig(u.cfg.Mapper.JaccardThreshold, u.cfg.Mapper.LevenshteinThreshold))
	for _, version := range sortedKeys(u.cfg.Datasets.Versification) {
		m.SetVersification(version, u.cfg.Datasets.Versification[version])
	}

	generate := m.Generate
	if u.cfg.Mapper.Fallback {
		generate = m.GenerateWithFallback
	}
	xref, err := generate(corpus)
	if err != nil {
		return nil, nil, fmt.Errorf("cross-reference generation failed: %w", err)
	}

	hits, misses := m.Cache().Stats()
	log.Debug("text cache", "entries", m.Cache().Size(), "hits", hits, "misses", misses)
	return xref, m, nil
}

func logSummary(log *slog.Logger, s mapper.Summary, xref *domain.CrossReferenceMap) {
	log.Info("cross references generated",
		"total", s.TotalReferences,
		"mapped", s.FullyMapped,
		"nulls", s.WithNulls,
		"conflicts", s.WithConflicts,
		"coverage", s.CoverageRate,
	)
	for _, t := range domain.ConflictTypes {
		if n := s.ConflictsByType[t]; n > 0 {
			log.Info("conflicts by type", "type", string(t), "count", n)
		}
	}
	for _, scheme := range sortedKeys(xref.Versification) {
		log.Info("versification scheme", "scheme", scheme, "versions", xref.Versification[scheme])
	}
}

func (u *BuildUseCase) writeSite(corpus domain.Corpus, xref *domain.CrossReferenceMap) (int, error) {
	gen, err := site.New(u.cfg.Output.Dir, site.Options{
		BaseURL:     u.cfg.Output.BaseURL,
		VersionName: parser.VersionDisplayName,
		Redirects:   u.cfg.Output.Redirects,
	})
	if err != nil {
		return 0, err
	}
	n, err := gen.WriteAll(corpus, xref)
	if err != nil {
		return n, err
	}
	if _, err := gen.WriteSitemap(corpus); err != nil {
		return n, err
	}
	if _, err := gen.WriteRobots(); err != nil {
		return n, err
	}
	return n, nil
}

// compareWithLast checks the new cross-reference hash against the last
// build made from the same sources and mapping configuration.
func (u *BuildUseCase) compareWithLast(log *slog.Logger, configHash string, checksums map[string]string, xrefSHA string) *bool {
	last, err := u.store.LastBuild()
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn("failed to read last build", "error", err)
		}
		return nil
	}
	if last.ConfigHash != configHash || !maps.Equal(last.SourceChecksums, checksums) {
		return nil
	}

	same := last.CrossRefsSHA256 == xrefSHA
	if !same {
		log.Error("non-deterministic cross references",
			"previous_build", last.ID,
			"previous_sha256", last.CrossRefsSHA256,
			"sha256", xrefSHA,
		)
	}
	return &same
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
