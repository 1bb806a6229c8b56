package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"biblegen/config"
	"biblegen/internal/adapter/fs"
	"biblegen/internal/adapter/memstore"
	"biblegen/internal/domain"
	"biblegen/internal/port"
)

const kjvText = `Genesis
Chapter 1
1 In the beginning God created the heaven and the earth.
2 And the earth was without form, and void.
3 And God said, Let there be light: and there was light.

Chapter 2
1 Thus the heavens and the earth were finished.
`

const webText = `Genesis
Chapter 1
1 In the beginning, God created the heavens and the earth.
2 The earth was formless and empty.

Chapter 2
1 The heavens, the earth, and all their vast array were finished.
`

type fixture struct {
	cfg      *config.Config
	datasets []port.Dataset
	store    *memstore.MemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	var datasets []port.Dataset
	for name, text := range map[string]string{"kjv.txt": kjvText, "web.txt": webText} {
		p := filepath.Join(dir, "datasets", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(text), 0o644))
		datasets = append(datasets, fs.DatasetFor(p))
	}

	cfg := config.DefaultConfig()
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Output.SQLite = true
	cfg.Output.BuildTimestamp = "2024-05-01T12:00:00Z"
	cfg.Logging.Dir = filepath.Join(dir, "logs")
	cfg.Logging.KeepBuilds = 2

	return fixture{cfg: cfg, datasets: datasets, store: memstore.NewMemoryStore()}
}

func (f fixture) build(t *testing.T) *BuildResult {
	t.Helper()
	uc := NewBuildUseCase(f.cfg, f.store, nil)
	uc.clock = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	res, err := uc.Build(context.Background(), f.datasets, nil)
	require.NoError(t, err)
	return res
}

func TestBuild_WritesOutputs(t *testing.T) {
	f := newFixture(t)

	var calls int
	uc := NewBuildUseCase(f.cfg, f.store, nil)
	res, err := uc.Build(context.Background(), f.datasets, func(processed, total int, current string) {
		calls++
		require.Equal(t, 2, total)
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)

	require.Equal(t, 2, res.Datasets)
	require.Empty(t, res.InvalidDatasets)
	require.Equal(t, 4, res.ChaptersWritten)
	require.Equal(t, 4, res.PagesWritten)
	require.Nil(t, res.Deterministic)
	require.NotEmpty(t, res.CrossRefsSHA256)
	require.NotEmpty(t, res.ManifestSHA256)

	out := f.cfg.Output.Dir
	for _, rel := range []string{
		"manifest.json", "versions.json", "books.json", "crossrefs.json",
		"kjv/Genesis/1.json", "web/Genesis/2.json",
		"bible/kjv/Genesis/1.html", "sitemap.xml", "robots.txt", "bible.sqlite",
	} {
		require.FileExists(t, filepath.Join(out, filepath.FromSlash(rel)))
	}

	// Genesis.1.3 exists only in kjv.
	m := res.Metrics
	require.Equal(t, 8, m.Total)
	require.Equal(t, m.Total, m.Mapped+m.Nulls)
	require.GreaterOrEqual(t, m.Nulls, 1)

	require.NotEmpty(t, res.Report.BuildID)
	require.FileExists(t, res.Report.LogFile)
	require.Equal(t, 1, res.Report.Summary.Processed.Books)
	require.Equal(t, 4, res.Report.Summary.Processed.Chapters)

	builds, err := f.store.ListBuilds()
	require.NoError(t, err)
	require.Len(t, builds, 1)
	require.Equal(t, res.Report.BuildID, builds[0].ID)
	require.Equal(t, res.CrossRefsSHA256, builds[0].CrossRefsSHA256)
}

func TestBuild_DeterministicRebuild(t *testing.T) {
	f := newFixture(t)

	first := f.build(t)
	second := f.build(t)

	require.Equal(t, first.CrossRefsSHA256, second.CrossRefsSHA256)
	require.Equal(t, first.ManifestSHA256, second.ManifestSHA256)
	require.NotNil(t, second.Deterministic)
	require.True(t, *second.Deterministic)
	require.NotEqual(t, first.Report.BuildID, second.Report.BuildID)
}

func TestBuild_ConfigChangeClearsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.build(t)

	f.cfg.Mapper.JaccardThreshold = 0.5
	res := f.build(t)
	require.True(t, res.Rebuilt)
	require.Equal(t, "mapping configuration changed", res.RebuildReason)
	require.Nil(t, res.Deterministic)
}

func TestBuild_RotatesLogs(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		f.build(t)
	}
	logs, err := filepath.Glob(filepath.Join(f.cfg.Logging.Dir, "build-*.jsonl"))
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func TestBuild_Errors(t *testing.T) {
	f := newFixture(t)
	uc := NewBuildUseCase(f.cfg, f.store, nil)

	_, err := uc.Build(context.Background(), nil, nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = uc.Build(ctx, f.datasets, nil)
	require.ErrorIs(t, err, context.Canceled)

	f.cfg.Output.Compression = "brotli"
	_, err = uc.Build(context.Background(), f.datasets, nil)
	require.Error(t, err)
}

func TestBuild_FormatOverride(t *testing.T) {
	f := newFixture(t)
	f.cfg.Datasets.Formats = map[string]string{"kjv": "nope"}

	_, err := NewBuildUseCase(f.cfg, f.store, nil).Build(context.Background(), f.datasets, nil)
	require.Error(t, err)
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	f.build(t)
	uc := NewLookupUseCase(f.store)

	res, err := uc.Lookup(context.Background(), "Genesis.1.1")
	require.NoError(t, err)
	require.Equal(t, "Genesis.1.1", res.Canonical)
	ref, ok := res.Entries["web"].Ref()
	require.True(t, ok)
	require.Equal(t, "Genesis.1.1", ref)

	res, err = uc.Lookup(context.Background(), "Genesis.01.3")
	require.NoError(t, err)
	require.Equal(t, "Genesis.1.3", res.Canonical)

	_, err = uc.Lookup(context.Background(), "Genesis.1")
	require.ErrorIs(t, err, domain.ErrInvalidReference)

	_, err = uc.Lookup(context.Background(), "Exodus.1.1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	f.build(t)

	uc := NewValidateUseCase(f.cfg, f.store, nil)
	report, err := uc.Validate()
	require.NoError(t, err)
	require.True(t, report.OK(), "violations: %v", report.Violations)
	require.Equal(t, 4, report.ChapterFiles)
	require.NotNil(t, report.Deterministic)
	require.True(t, *report.Deterministic)
	require.NotNil(t, report.Metrics)
}

func TestValidate_DetectsProblems(t *testing.T) {
	f := newFixture(t)
	f.build(t)
	out := f.cfg.Output.Dir

	require.NoError(t, os.WriteFile(filepath.Join(out, "kjv", "Genesis", "2.json"), []byte(`{"book":"Genesis"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(out, "web", "Genesis", "2.json"), []byte(`{broken`), 0o644))
	require.NoError(t, os.Remove(filepath.Join(out, "books.json")))

	f.cfg.Output.Budgets.MaxChapterBytes = 10
	report, err := NewValidateUseCase(f.cfg, nil, nil).Validate()
	require.NoError(t, err)
	require.False(t, report.OK())
	require.Nil(t, report.Deterministic)

	byPath := map[string]int{}
	for _, v := range report.Violations {
		byPath[v.Path]++
	}
	require.Positive(t, byPath["kjv/Genesis/2.json"])
	require.Positive(t, byPath["web/Genesis/2.json"])
	require.Positive(t, byPath["kjv/Genesis/1.json"])
	require.Equal(t, 1, byPath["books.json"])
}

func TestValidate_TamperedCrossRefs(t *testing.T) {
	f := newFixture(t)
	f.build(t)

	p := filepath.Join(f.cfg.Output.Dir, "crossrefs.json")
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, append(data, '\n'), 0o644))

	report, err := NewValidateUseCase(f.cfg, f.store, nil).Validate()
	require.NoError(t, err)
	require.NotNil(t, report.Deterministic)
	require.False(t, *report.Deterministic)
	require.False(t, report.OK())
}

func TestValidate_MissingDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "absent")
	_, err := NewValidateUseCase(cfg, nil, nil).Validate()
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	uc := NewSweepUseCase(f.cfg, nil)

	steps, err := uc.Run(context.Background(), f.datasets, 0.65, 0.75, 0.05)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	require.Equal(t, []float64{0.65, 0.7, 0.75}, []float64{steps[0].Jaccard, steps[1].Jaccard, steps[2].Jaccard})
	for i, s := range steps {
		require.Equal(t, 8, s.Mapped+s.Nulls)
		if i > 0 {
			require.LessOrEqual(t, s.Coverage, steps[i-1].Coverage+monotonicSlack)
			require.False(t, s.Increased)
		}
	}

	_, err = uc.Run(context.Background(), f.datasets, 0.8, 0.7, 0.05)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
