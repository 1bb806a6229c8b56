package memstore

import (
	"sort"
	"sync"

	"biblegen/internal/domain"
	"biblegen/internal/port"
)

// MemoryStore is a BuildStore kept in process memory, used by watch mode
// without a state directory and by tests.
type MemoryStore struct {
	mu         sync.RWMutex
	schema     int
	configHash string
	builds     []domain.BuildRecord
	mappings   map[string]map[string]domain.MappingEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mappings: make(map[string]map[string]domain.MappingEntry),
	}
}

func (s *MemoryStore) CheckSchema(configHash string) (port.SchemaCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := port.SchemaCheck{OldVersion: s.schema, NewVersion: 1}
	if s.schema == 0 {
		res.NeedsMigration = true
		res.Reason = "initializing schema version"
		return res, nil
	}
	if s.configHash != "" && s.configHash != configHash {
		res.NeedsRebuild = true
		res.Reason = "mapping configuration changed"
	}
	return res, nil
}

func (s *MemoryStore) Migrate(configHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = 1
	s.configHash = configHash
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = make(map[string]map[string]domain.MappingEntry)
	return nil
}

func (s *MemoryStore) PutBuild(rec domain.BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds = append(s.builds, rec)
	sort.SliceStable(s.builds, func(i, j int) bool {
		return s.builds[i].Timestamp.Before(s.builds[j].Timestamp)
	})
	return nil
}

func (s *MemoryStore) LastBuild() (domain.BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.builds) == 0 {
		return domain.BuildRecord{}, &domain.NotFoundError{Resource: "build", ID: "last"}
	}
	return s.builds[len(s.builds)-1], nil
}

func (s *MemoryStore) ListBuilds() ([]domain.BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.BuildRecord(nil), s.builds...), nil
}

func (s *MemoryStore) PutCrossRefs(xref *domain.CrossReferenceMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = make(map[string]map[string]domain.MappingEntry, len(xref.Mappings))
	for canonical, entries := range xref.Mappings {
		cp := make(map[string]domain.MappingEntry, len(entries))
		for v, e := range entries {
			cp[v] = e
		}
		s.mappings[canonical] = cp
	}
	return nil
}

func (s *MemoryStore) GetMapping(canonical string) (map[string]domain.MappingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.mappings[canonical]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "reference", ID: canonical}
	}
	cp := make(map[string]domain.MappingEntry, len(entries))
	for v, e := range entries {
		cp[v] = e
	}
	return cp, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ port.BuildStore = (*MemoryStore)(nil)
