package memstore

import (
	"errors"
	"testing"
	"time"

	"biblegen/internal/domain"
)

func TestMemoryStore_Builds(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.LastBuild(); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Now()
	s.PutBuild(domain.BuildRecord{ID: "later", Timestamp: now.Add(time.Minute)})
	s.PutBuild(domain.BuildRecord{ID: "earlier", Timestamp: now})

	last, err := s.LastBuild()
	if err != nil {
		t.Fatal(err)
	}
	if last.ID != "later" {
		t.Errorf("LastBuild = %s, want later", last.ID)
	}

	builds, _ := s.ListBuilds()
	if len(builds) != 2 || builds[0].ID != "earlier" {
		t.Errorf("ListBuilds = %+v", builds)
	}
}

func TestMemoryStore_CrossRefs(t *testing.T) {
	s := NewMemoryStore()
	xref := &domain.CrossReferenceMap{Mappings: map[string]map[string]domain.MappingEntry{
		"Genesis.1.1": {"kjv": domain.RefEntry("Genesis.1.1")},
	}}
	if err := s.PutCrossRefs(xref); err != nil {
		t.Fatal(err)
	}

	// The store keeps its own copy.
	xref.Mappings["Genesis.1.1"]["kjv"] = domain.NullEntry("changed")

	got, err := s.GetMapping("Genesis.1.1")
	if err != nil {
		t.Fatal(err)
	}
	if ref, ok := got["kjv"].Ref(); !ok || ref != "Genesis.1.1" {
		t.Errorf("entry = %v", got["kjv"])
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetMapping("Genesis.1.1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after Clear, got %v", err)
	}
}

func TestMemoryStore_Schema(t *testing.T) {
	s := NewMemoryStore()

	res, _ := s.CheckSchema("a")
	if !res.NeedsMigration {
		t.Error("fresh store should need migration")
	}
	s.Migrate("a")

	res, _ = s.CheckSchema("a")
	if res.NeedsMigration || res.NeedsRebuild {
		t.Errorf("unexpected check result: %+v", res)
	}
	res, _ = s.CheckSchema("b")
	if !res.NeedsRebuild {
		t.Error("changed hash should need rebuild")
	}
}
