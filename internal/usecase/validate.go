package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"biblegen/config"
	"biblegen/internal/adapter/jsonapi"
	"biblegen/internal/adapter/store"
	"biblegen/internal/domain"
	"biblegen/internal/port"
)

// coverageTolerance absorbs float formatting in crossrefs.json.
const coverageTolerance = 1e-9

var chapterFields = []string{"schema_version", "book", "chapter", "version", "verses"}

// ValidateUseCase checks an existing output directory without rebuilding.
type ValidateUseCase struct {
	cfg    *config.Config
	store  port.BuildStore
	logger *slog.Logger
}

// NewValidateUseCase creates a validator. st may be nil, which skips the
// determinism check.
func NewValidateUseCase(cfg *config.Config, st port.BuildStore, logger *slog.Logger) *ValidateUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidateUseCase{cfg: cfg, store: st, logger: logger}
}

type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type ValidateReport struct {
	FilesChecked    int                    `json:"files_checked"`
	ChapterFiles    int                    `json:"chapter_files"`
	Violations      []Violation            `json:"violations"`
	Metrics         *domain.MappingMetrics `json:"metrics,omitempty"`
	Deterministic   *bool                  `json:"deterministic,omitempty"`
	ComparedBuildID string                 `json:"compared_build_id,omitempty"`
}

// OK reports whether no violation was found.
func (r *ValidateReport) OK() bool {
	return len(r.Violations) == 0
}

func (r *ValidateReport) add(path, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate inspects every JSON document under the output directory.
func (u *ValidateUseCase) Validate() (*ValidateReport, error) {
	outDir := u.cfg.Output.Dir
	if _, err := os.Stat(outDir); err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}

	files, err := doublestar.Glob(os.DirFS(outDir), "**/*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list output files: %w", err)
	}

	report := &ValidateReport{Violations: []Violation{}}
	for _, rel := range files {
		if strings.HasPrefix(rel, ".") {
			continue
		}
		report.FilesChecked++
		u.checkFile(report, outDir, rel)
	}

	for _, required := range []string{jsonapi.ManifestFile, jsonapi.VersionsFile, jsonapi.BooksFile, jsonapi.CrossRefsFile} {
		if _, err := os.Stat(filepath.Join(outDir, required)); err != nil {
			report.add(required, "missing")
		}
	}

	if xref, err := jsonapi.ReadCrossRefs(outDir); err == nil {
		u.checkMetrics(report, xref)
	}
	u.checkDeterminism(report, outDir)

	u.logger.Info("output validated",
		"dir", outDir,
		"files", report.FilesChecked,
		"chapters", report.ChapterFiles,
		"violations", len(report.Violations),
	)
	return report, nil
}

func (u *ValidateUseCase) checkFile(report *ValidateReport, outDir, rel string) {
	data, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel)))
	if err != nil {
		report.add(rel, "unreadable: %v", err)
		return
	}
	if !json.Valid(data) {
		report.add(rel, "invalid JSON")
		return
	}

	budgets := u.cfg.Output.Budgets
	switch {
	case rel == jsonapi.CrossRefsFile:
		if budgets.MaxCrossRefsBytes > 0 && int64(len(data)) > budgets.MaxCrossRefsBytes {
			report.add(rel, "size %d exceeds budget %d", len(data), budgets.MaxCrossRefsBytes)
		}
	case strings.Count(rel, "/") == 2:
		report.ChapterFiles++
		if budgets.MaxChapterBytes > 0 && int64(len(data)) > budgets.MaxChapterBytes {
			report.add(rel, "size %d exceeds budget %d", len(data), budgets.MaxChapterBytes)
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			report.add(rel, "chapter is not an object")
			return
		}
		for _, field := range chapterFields {
			if _, ok := doc[field]; !ok {
				report.add(rel, "missing field %q", field)
			}
		}
	}
}

// checkMetrics recounts the mappings and compares them with the stored
// metrics block.
func (u *ValidateUseCase) checkMetrics(report *ValidateReport, xref *domain.CrossReferenceMap) {
	m := xref.Metrics
	if m == nil {
		report.add(jsonapi.CrossRefsFile, "metrics missing")
		return
	}
	report.Metrics = m

	if m.Total != m.Mapped+m.Nulls {
		report.add(jsonapi.CrossRefsFile, "total %d != mapped %d + nulls %d", m.Total, m.Mapped, m.Nulls)
	}
	want := 0.0
	if m.Total > 0 {
		want = float64(m.Mapped) / float64(m.Total)
	}
	if math.Abs(m.Coverage-want) > coverageTolerance {
		report.add(jsonapi.CrossRefsFile, "coverage %v != mapped/total %v", m.Coverage, want)
	}
	if m.Coverage < 0 || m.Coverage > 1 {
		report.add(jsonapi.CrossRefsFile, "coverage %v outside [0,1]", m.Coverage)
	}

	var mapped, nulls int
	for _, perVersion := range xref.Mappings {
		for _, e := range perVersion {
			if e.IsNull() {
				nulls++
			} else {
				mapped++
			}
		}
	}
	if mapped != m.Mapped || nulls != m.Nulls {
		report.add(jsonapi.CrossRefsFile, "metrics say %d mapped/%d nulls, mappings hold %d/%d", m.Mapped, m.Nulls, mapped, nulls)
	}
	if len(xref.Conflicts) != m.Conflicts {
		report.add(jsonapi.CrossRefsFile, "metrics say %d conflicts, map holds %d", m.Conflicts, len(xref.Conflicts))
	}
}

// checkDeterminism compares crossrefs.json with the last recorded build
// when both came from the same sources and mapping configuration.
func (u *ValidateUseCase) checkDeterminism(report *ValidateReport, outDir string) {
	if u.store == nil {
		return
	}
	last, err := u.store.LastBuild()
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			u.logger.Warn("failed to read last build", "error", err)
		}
		return
	}
	manifest, err := jsonapi.ReadManifest(outDir)
	if err != nil {
		return
	}
	if last.ConfigHash != store.ComputeConfigHash(u.cfg) || !maps.Equal(last.SourceChecksums, manifest.SourceChecksums) {
		return
	}

	sum, err := jsonapi.FileChecksum(filepath.Join(outDir, jsonapi.CrossRefsFile))
	if err != nil {
		return
	}
	same := sum == last.CrossRefsSHA256
	report.Deterministic = &same
	report.ComparedBuildID = last.ID
	if !same {
		report.add(jsonapi.CrossRefsFile, "sha256 %s differs from build %s (%s)", sum, last.ID, last.CrossRefsSHA256)
	}
}
