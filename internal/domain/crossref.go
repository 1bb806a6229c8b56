package domain

import (
	"encoding/json"
	"fmt"
)

// VersificationMismatchMarker prefixes the reason of entries that are absent
// because the version declares its own versification scheme.
const VersificationMismatchMarker = "versification_mismatch"

// MappingEntry is the resolution of one canonical reference in one version:
// either a resolved reference or an explained absence.
type MappingEntry struct {
	ref    string
	reason string
	null   bool
}

// RefEntry resolves to ref.
func RefEntry(ref string) MappingEntry {
	return MappingEntry{ref: ref}
}

// NullEntry records an unresolved reference and why.
func NullEntry(reason string) MappingEntry {
	return MappingEntry{reason: reason, null: true}
}

// Ref returns the resolved reference and true, or "" and false for a null entry.
func (e MappingEntry) Ref() (string, bool) {
	if e.null {
		return "", false
	}
	return e.ref, true
}

func (e MappingEntry) IsNull() bool {
	return e.null
}

// Reason is empty for resolved entries.
func (e MappingEntry) Reason() string {
	return e.reason
}

func (e MappingEntry) String() string {
	if e.null {
		return fmt.Sprintf("null (%s)", e.reason)
	}
	return e.ref
}

type mappingEntryJSON struct {
	Ref    *string `json:"ref"`
	Reason *string `json:"reason,omitempty"`
}

// MarshalJSON writes {"ref":"X"} or {"ref":null,"reason":"..."}.
func (e MappingEntry) MarshalJSON() ([]byte, error) {
	if e.null {
		reason := e.reason
		return json.Marshal(mappingEntryJSON{Reason: &reason})
	}
	ref := e.ref
	return json.Marshal(mappingEntryJSON{Ref: &ref})
}

// UnmarshalJSON accepts both shapes written by MarshalJSON. A null ref
// without a reason is rejected.
func (e *MappingEntry) UnmarshalJSON(data []byte) error {
	var raw mappingEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Ref != nil:
		*e = RefEntry(*raw.Ref)
	case raw.Reason != nil:
		*e = NullEntry(*raw.Reason)
	default:
		return &ValidationError{Field: "mapping entry", Message: "null ref requires a reason"}
	}
	return nil
}

// ConflictType classifies how a version's verse boundaries differ from the
// canonical reference.
type ConflictType string

const (
	ConflictSplit  ConflictType = "split"
	ConflictMerge  ConflictType = "merge"
	ConflictShift  ConflictType = "shift"
	ConflictAbsent ConflictType = "absent"
)

// ConflictTypes lists every conflict type in a stable order.
var ConflictTypes = []ConflictType{ConflictSplit, ConflictMerge, ConflictShift, ConflictAbsent}

func (t *ConflictType) UnmarshalText(text []byte) error {
	switch ct := ConflictType(text); ct {
	case ConflictSplit, ConflictMerge, ConflictShift, ConflictAbsent:
		*t = ct
		return nil
	default:
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown conflict type %q", text)}
	}
}

// MappingConflict is one classified structural difference. Details holds the
// supporting references or the reason text.
type MappingConflict struct {
	Canonical string       `json:"canonical"`
	Version   string       `json:"version"`
	Type      ConflictType `json:"type"`
	Details   []string     `json:"details"`
}

type SimilarityThresholds struct {
	Jaccard     float64 `json:"jaccard"`
	Levenshtein float64 `json:"levenshtein"`
}

// MappingMetrics summarises a generation run. Total is always Mapped+Nulls.
type MappingMetrics struct {
	Total                int                  `json:"total"`
	Mapped               int                  `json:"mapped"`
	Nulls                int                  `json:"nulls"`
	Conflicts            int                  `json:"conflicts"`
	Coverage             float64              `json:"coverage"`
	SimilarityThresholds SimilarityThresholds `json:"similarity_thresholds"`
}

// CrossReferenceMap is the output of one mapping generation. Map keys are
// serialized in sorted order by encoding/json, which keeps the output
// byte-identical across runs.
type CrossReferenceMap struct {
	SchemaVersion string                             `json:"schema_version"`
	Versification map[string][]string                `json:"versification,omitempty"`
	Mappings      map[string]map[string]MappingEntry `json:"mappings"`
	Conflicts     []MappingConflict                  `json:"conflicts"`
	Metrics       *MappingMetrics                    `json:"metrics,omitempty"`
}

// Entry looks up the mapping for one canonical reference and version.
func (m *CrossReferenceMap) Entry(canonical, version string) (MappingEntry, bool) {
	perVersion, ok := m.Mappings[canonical]
	if !ok {
		return MappingEntry{}, false
	}
	e, ok := perVersion[version]
	return e, ok
}

// ConflictCounts tallies conflicts by type.
func (m *CrossReferenceMap) ConflictCounts() map[ConflictType]int {
	counts := make(map[ConflictType]int, len(ConflictTypes))
	for _, c := range m.Conflicts {
		counts[c.Type]++
	}
	return counts
}

// RefLookup is the per-version mapping of one canonical reference.
type RefLookup struct {
	Canonical string                  `json:"canonical"`
	Entries   map[string]MappingEntry `json:"entries"`
}
