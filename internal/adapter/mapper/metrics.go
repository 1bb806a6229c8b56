package mapper

import (
	"strings"

	"biblegen/internal/domain"
)

// ComputeMetrics counts resolved and unresolved entries of xref.
func (m *Mapper) ComputeMetrics(xref *domain.CrossReferenceMap) domain.MappingMetrics {
	var total, mapped, nulls int
	for _, perVersion := range xref.Mappings {
		for _, entry := range perVersion {
			if entry.IsNull() {
				nulls++
			} else {
				mapped++
			}
			total++
		}
	}

	coverage := 0.0
	if total > 0 {
		coverage = float64(mapped) / float64(total)
	}

	return domain.MappingMetrics{
		Total:     total,
		Mapped:    mapped,
		Nulls:     nulls,
		Conflicts: len(xref.Conflicts),
		Coverage:  coverage,
		SimilarityThresholds: domain.SimilarityThresholds{
			Jaccard:     m.config.JaccardThreshold,
			Levenshtein: m.config.LevenshteinThreshold,
		},
	}
}

// Summary is a condensed view of a generation run for reporting.
type Summary struct {
	TotalReferences int
	FullyMapped     int
	WithNulls       int
	WithConflicts   int
	CoverageRate    float64
	ConflictsByType map[domain.ConflictType]int
	NullReasons     map[string]int
}

// Summarize derives a Summary from xref. Null reasons are grouped by their
// leading phrase ("Chapter", "Verse", "versification_mismatch", ...).
func (m *Mapper) Summarize(xref *domain.CrossReferenceMap) Summary {
	metrics := m.ComputeMetrics(xref)
	s := Summary{
		TotalReferences: metrics.Total,
		FullyMapped:     metrics.Mapped,
		WithNulls:       metrics.Nulls,
		WithConflicts:   metrics.Conflicts,
		CoverageRate:    metrics.Coverage,
		ConflictsByType: xref.ConflictCounts(),
		NullReasons:     make(map[string]int),
	}
	for _, perVersion := range xref.Mappings {
		for _, entry := range perVersion {
			if entry.IsNull() {
				s.NullReasons[reasonKind(entry.Reason())]++
			}
		}
	}
	return s
}

func reasonKind(reason string) string {
	kind, _, _ := strings.Cut(reason, " ")
	return kind
}
