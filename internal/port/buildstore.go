package port

import "biblegen/internal/domain"

// BuildStore remembers completed builds and the last cross-reference map
// so that lookups and determinism checks do not need the output tree.
type BuildStore interface {
	CheckSchema(configHash string) (SchemaCheck, error)

	Migrate(configHash string) error

	Clear() error

	PutBuild(rec domain.BuildRecord) error

	// LastBuild returns a *domain.NotFoundError when nothing was recorded.
	LastBuild() (domain.BuildRecord, error)

	ListBuilds() ([]domain.BuildRecord, error)

	PutCrossRefs(xref *domain.CrossReferenceMap) error

	GetMapping(canonical string) (map[string]domain.MappingEntry, error)

	Close() error
}

// SchemaCheck describes whether stored data matches the running binary and
// the mapping-relevant configuration.
type SchemaCheck struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}
