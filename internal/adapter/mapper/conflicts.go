package mapper

import (
	"fmt"
	"sort"
	"strconv"

	"biblegen/internal/domain"
)

// detectConflicts appends the conflicts found for one canonical reference.
// Versions are visited in the given (sorted) order so the result is
// reproducible. Malformed references are skipped.
func (m *Mapper) detectConflicts(
	canonical string,
	perVersion map[string]domain.MappingEntry,
	versions []string,
	corpus domain.Corpus,
	conflicts []domain.MappingConflict,
) []domain.MappingConflict {
	cref, err := domain.ParseCanonicalRef(canonical)
	if err != nil {
		return conflicts
	}

	for _, version := range versions {
		entry, ok := perVersion[version]
		if !ok {
			continue
		}
		if c, ok := m.refConflict(cref, version, entry, corpus); ok {
			conflicts = append(conflicts, c)
			continue
		}
		if isVersificationMismatch(entry) {
			conflicts = append(conflicts, domain.MappingConflict{
				Canonical: canonical,
				Version:   version,
				Type:      domain.ConflictAbsent,
				Details:   []string{entry.Reason()},
			})
		}
	}

	return detectSplitMerge(cref, perVersion, versions, corpus, conflicts)
}

// refConflict classifies a resolved entry pointing at a different verse of
// the same chapter.
func (m *Mapper) refConflict(cref domain.CanonicalRef, version string, entry domain.MappingEntry, corpus domain.Corpus) (domain.MappingConflict, bool) {
	target, ok := entry.Ref()
	if !ok || target == cref.String() {
		return domain.MappingConflict{}, false
	}
	tref, err := domain.ParseCanonicalRef(target)
	if err != nil || !tref.SameChapter(cref) {
		return domain.MappingConflict{}, false
	}
	return domain.MappingConflict{
		Canonical: cref.String(),
		Version:   version,
		Type:      classifyConflict(cref, tref.Verse, corpus[version]),
		Details:   []string{target},
	}, true
}

// classifyConflict decides how the canonical verse relates to the verse it
// was resolved to in the version's chapter.
func classifyConflict(cref domain.CanonicalRef, refVerse string, chapters domain.VersionChapters) domain.ConflictType {
	canonicalNum, ok1 := verseNumber(cref.Verse)
	refNum, ok2 := verseNumber(refVerse)
	if !ok1 || !ok2 {
		return domain.ConflictAbsent
	}

	diff := int64(canonicalNum) - int64(refNum)
	if diff == 1 || diff == -1 {
		return domain.ConflictShift
	}

	chapter, ok := chapters[cref.ChapterKey()]
	if !ok {
		return domain.ConflictShift
	}
	present := numericVerses(chapter)

	if present[canonicalNum] && present[canonicalNum+1] && present[refNum] && !present[refNum+1] {
		return domain.ConflictMerge
	}
	if present[refNum] && present[refNum+1] && present[canonicalNum] && !present[canonicalNum+1] {
		return domain.ConflictSplit
	}
	return domain.ConflictShift
}

// detectSplitMerge looks for explicit "N-M" merged keys between consecutive
// numeric verses of each version's chapter.
func detectSplitMerge(
	cref domain.CanonicalRef,
	perVersion map[string]domain.MappingEntry,
	versions []string,
	corpus domain.Corpus,
	conflicts []domain.MappingConflict,
) []domain.MappingConflict {
	canonical := cref.String()

	for _, version := range versions {
		entry, ok := perVersion[version]
		if !ok {
			continue
		}
		target, ok := entry.Ref()
		if !ok {
			continue
		}
		chapter, ok := corpus[version][cref.ChapterKey()]
		if !ok {
			continue
		}

		nums := sortedVerseNumbers(chapter)
		for i := 0; i+1 < len(nums); i++ {
			curr, next := nums[i], nums[i+1]
			if _, merged := chapter.Verses[fmt.Sprintf("%d-%d", curr, next)]; !merged {
				continue
			}
			currRef := domain.CanonicalRef{Book: cref.Book, Chapter: cref.Chapter, Verse: strconv.FormatUint(uint64(curr), 10)}.String()
			nextRef := domain.CanonicalRef{Book: cref.Book, Chapter: cref.Chapter, Verse: strconv.FormatUint(uint64(next), 10)}.String()

			if target == canonical && !hasConflict(conflicts, canonical, version, domain.ConflictMerge) {
				conflicts = append(conflicts, domain.MappingConflict{
					Canonical: canonical,
					Version:   version,
					Type:      domain.ConflictMerge,
					Details:   []string{currRef, nextRef},
				})
			}
			if (canonical == currRef || canonical == nextRef) && !hasConflict(conflicts, canonical, version, domain.ConflictSplit) {
				conflicts = append(conflicts, domain.MappingConflict{
					Canonical: canonical,
					Version:   version,
					Type:      domain.ConflictSplit,
					Details:   []string{currRef, nextRef},
				})
			}
		}
	}
	return conflicts
}

// hasConflict only scans the tail of the list: conflicts of one canonical
// reference are always appended contiguously.
func hasConflict(conflicts []domain.MappingConflict, canonical, version string, t domain.ConflictType) bool {
	for i := len(conflicts) - 1; i >= 0; i-- {
		c := conflicts[i]
		if c.Canonical != canonical {
			return false
		}
		if c.Version == version && c.Type == t {
			return true
		}
	}
	return false
}

// verseNumber parses a plain positive verse number. Ranges, letters and zero
// are rejected.
func verseNumber(s string) (uint32, bool) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint32(n), true
}

func numericVerses(ch domain.Chapter) map[uint32]bool {
	present := make(map[uint32]bool, len(ch.Verses))
	for k := range ch.Verses {
		if n, err := strconv.ParseUint(k, 10, 32); err == nil {
			present[uint32(n)] = true
		}
	}
	return present
}

func sortedVerseNumbers(ch domain.Chapter) []uint32 {
	present := numericVerses(ch)
	nums := make([]uint32, 0, len(present))
	for n := range present {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}
