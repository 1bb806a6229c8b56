package mapper

import (
	"fmt"
	"sort"
	"strings"

	"biblegen/internal/adapter/cache"
	"biblegen/internal/domain"
)

// SchemaVersion is written into every generated cross-reference map.
const SchemaVersion = "1.0"

// Mapper aligns the verse numbering of several versions onto one canonical
// reference space. A Mapper owns its text cache and is not safe for
// concurrent generation runs.
type Mapper struct {
	config        Config
	cache         *cache.TextCache
	versification map[string]string
}

func New(cfg Config) *Mapper {
	return &Mapper{
		config:        cfg,
		cache:         cache.NewTextCache(),
		versification: make(map[string]string),
	}
}

func (m *Mapper) Config() Config {
	return m.config
}

// Cache exposes the mapper's text cache, mainly for statistics.
func (m *Mapper) Cache() *cache.TextCache {
	return m.cache
}

// SetVersification declares that version follows its own numbering scheme.
// Must be called before generation.
func (m *Mapper) SetVersification(version, scheme string) {
	m.versification[version] = scheme
}

// Generate builds the base mapping: direct matches, explained absences,
// conflicts and metrics. No textual alignment is attempted.
func (m *Mapper) Generate(corpus domain.Corpus) (*domain.CrossReferenceMap, error) {
	m.cache.Clear()

	refs := collectCanonicalRefs(corpus)
	versions := corpus.Versions()

	xref := &domain.CrossReferenceMap{
		SchemaVersion: SchemaVersion,
		Versification: m.versificationGroups(),
		Mappings:      make(map[string]map[string]domain.MappingEntry, len(refs)),
		Conflicts:     []domain.MappingConflict{},
	}

	for _, canonical := range refs {
		ref, err := domain.ParseCanonicalRef(canonical)
		if err != nil {
			return nil, fmt.Errorf("generate mappings: %w", err)
		}

		perVersion := make(map[string]domain.MappingEntry, len(versions))
		for _, version := range versions {
			perVersion[version] = m.resolve(corpus, ref, version)
		}

		xref.Conflicts = m.detectConflicts(canonical, perVersion, versions, corpus, xref.Conflicts)
		xref.Mappings[canonical] = perVersion
	}

	metrics := m.ComputeMetrics(xref)
	xref.Metrics = &metrics
	return xref, nil
}

// resolve applies the resolution order for one reference in one version.
func (m *Mapper) resolve(corpus domain.Corpus, ref domain.CanonicalRef, version string) domain.MappingEntry {
	chapters, ok := corpus[version]
	if !ok {
		return domain.NullEntry("Version not available")
	}

	chapter, hasChapter := chapters[ref.ChapterKey()]
	if hasChapter {
		if _, ok := chapter.Verses[ref.Verse]; ok {
			return domain.RefEntry(ref.String())
		}
	}

	if scheme, ok := m.versification[version]; ok {
		return domain.NullEntry(versificationReason(scheme))
	}
	if !hasChapter {
		return domain.NullEntry(fmt.Sprintf("Chapter %d not found in %s", ref.Chapter, ref.Book))
	}
	return domain.NullEntry(fmt.Sprintf("Verse %s not found in %s", ref.Verse, ref.ChapterKey()))
}

func versificationReason(scheme string) string {
	return fmt.Sprintf("%s (%s)", domain.VersificationMismatchMarker, scheme)
}

func isVersificationMismatch(e domain.MappingEntry) bool {
	return e.IsNull() && strings.Contains(e.Reason(), domain.VersificationMismatchMarker)
}

// versificationGroups inverts version→scheme into scheme→sorted versions.
func (m *Mapper) versificationGroups() map[string][]string {
	if len(m.versification) == 0 {
		return nil
	}
	groups := make(map[string][]string)
	for version, scheme := range m.versification {
		groups[scheme] = append(groups[scheme], version)
	}
	for _, versions := range groups {
		sort.Strings(versions)
	}
	return groups
}

// collectCanonicalRefs returns every verse's canonical_ref, deduplicated and
// string-sorted.
func collectCanonicalRefs(corpus domain.Corpus) []string {
	seen := make(map[string]struct{})
	for _, chapters := range corpus {
		for _, ch := range chapters {
			for _, v := range ch.Verses {
				seen[v.CanonicalRef] = struct{}{}
			}
		}
	}
	refs := make([]string, 0, len(seen))
	for r := range seen {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	return refs
}
