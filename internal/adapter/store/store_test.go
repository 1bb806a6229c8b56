package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"biblegen/config"
	"biblegen/internal/domain"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "build.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testXref() *domain.CrossReferenceMap {
	return &domain.CrossReferenceMap{
		SchemaVersion: "1.0",
		Versification: map[string][]string{"kjv": {"kjv"}},
		Mappings: map[string]map[string]domain.MappingEntry{
			"Genesis.1.1": {"kjv": domain.RefEntry("Genesis.1.1"), "web": domain.RefEntry("Genesis.1.1")},
			"Genesis.1.2": {"kjv": domain.RefEntry("Genesis.1.2"), "web": domain.NullEntry("Verse 2 not found in Genesis.1")},
		},
		Conflicts: []domain.MappingConflict{
			{Canonical: "Genesis.1.2", Version: "web", Type: domain.ConflictAbsent, Details: []string{"versification_mismatch (web)"}},
		},
		Metrics: &domain.MappingMetrics{Total: 4, Mapped: 3, Nulls: 1, Conflicts: 1, Coverage: 0.75},
	}
}

func TestBuilds(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LastBuild()
	require.True(t, errors.Is(err, domain.ErrNotFound))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"b", "a", "c"} {
		require.NoError(t, s.PutBuild(domain.BuildRecord{
			ID:         id,
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
			ConfigHash: "h",
		}))
	}

	last, err := s.LastBuild()
	require.NoError(t, err)
	require.Equal(t, "c", last.ID)

	builds, err := s.ListBuilds()
	require.NoError(t, err)
	require.Len(t, builds, 3)
	require.Equal(t, "b", builds[0].ID)
	require.Equal(t, "a", builds[1].ID)
}

func TestCrossRefs(t *testing.T) {
	s := openTestStore(t)
	xref := testXref()
	require.NoError(t, s.PutCrossRefs(xref))

	entries, err := s.GetMapping("Genesis.1.2")
	require.NoError(t, err)
	require.Equal(t, domain.NullEntry("Verse 2 not found in Genesis.1"), entries["web"])

	_, err = s.GetMapping("Exodus.1.1")
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "Exodus.1.1", nf.ID)

	back, err := s.CrossRefs()
	require.NoError(t, err)
	require.Equal(t, xref.Metrics, back.Metrics)
	require.Equal(t, xref.Conflicts, back.Conflicts)
	require.Equal(t, xref.Versification, back.Versification)
	require.Len(t, back.Mappings, 2)

	// A second snapshot replaces the first entirely.
	smaller := testXref()
	delete(smaller.Mappings, "Genesis.1.1")
	require.NoError(t, s.PutCrossRefs(smaller))
	_, err = s.GetMapping("Genesis.1.1")
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutCrossRefs(testXref()))
	require.NoError(t, s.PutBuild(domain.BuildRecord{ID: "x", Timestamp: time.Now()}))
	require.NoError(t, s.Migrate("hash"))

	require.NoError(t, s.Clear())

	_, err := s.GetMapping("Genesis.1.1")
	require.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = s.CrossRefs()
	require.True(t, errors.Is(err, domain.ErrNotFound))

	builds, err := s.ListBuilds()
	require.NoError(t, err)
	require.Len(t, builds, 1)

	info, err := s.GetSchemaInfo()
	require.NoError(t, err)
	require.Equal(t, "hash", info.ConfigHash)
}

func TestCheckSchema(t *testing.T) {
	s := openTestStore(t)

	res, err := s.CheckSchema("h1")
	require.NoError(t, err)
	require.True(t, res.NeedsMigration)
	require.False(t, res.NeedsRebuild)

	require.NoError(t, s.Migrate("h1"))

	res, err = s.CheckSchema("h1")
	require.NoError(t, err)
	require.False(t, res.NeedsMigration)
	require.False(t, res.NeedsRebuild)

	res, err = s.CheckSchema("h2")
	require.NoError(t, err)
	require.True(t, res.NeedsRebuild)
	require.Equal(t, "mapping configuration changed", res.Reason)
}

func TestCheckSchema_Versions(t *testing.T) {
	tests := []struct {
		name          string
		info          SchemaInfo
		wantMigration bool
		wantRebuild   bool
	}{
		{"fresh", SchemaInfo{}, true, false},
		{"older", SchemaInfo{Version: 1, ConfigHash: "h"}, true, false},
		{"current", SchemaInfo{Version: CurrentSchemaVersion, ConfigHash: "h"}, false, false},
		{"newer", SchemaInfo{Version: CurrentSchemaVersion + 1, ConfigHash: "h"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := checkSchema(&tt.info, "h")
			require.Equal(t, tt.wantMigration, res.NeedsMigration)
			require.Equal(t, tt.wantRebuild, res.NeedsRebuild)
		})
	}
}

func TestComputeConfigHash(t *testing.T) {
	a := config.DefaultConfig()
	b := config.DefaultConfig()
	require.Equal(t, ComputeConfigHash(a), ComputeConfigHash(b))
	require.Len(t, ComputeConfigHash(a), 16)

	// Output-only settings do not matter.
	b.Output.MinifyJSON = true
	b.Output.BaseURL = "https://other.example"
	require.Equal(t, ComputeConfigHash(a), ComputeConfigHash(b))

	b.Mapper.JaccardThreshold = 0.6
	require.NotEqual(t, ComputeConfigHash(a), ComputeConfigHash(b))

	c := config.DefaultConfig()
	c.Datasets.Versification = map[string]string{"kjv": "kjv", "web": "web"}
	d := config.DefaultConfig()
	d.Datasets.Versification = map[string]string{"web": "web", "kjv": "kjv"}
	require.Equal(t, ComputeConfigHash(c), ComputeConfigHash(d))
	require.NotEqual(t, ComputeConfigHash(a), ComputeConfigHash(c))

	s := openTestStore(t)
	require.NoError(t, s.Migrate(ComputeConfigHash(a)))
	rebuild, _, err := s.NeedsRebuild(b)
	require.NoError(t, err)
	require.True(t, rebuild)
}
