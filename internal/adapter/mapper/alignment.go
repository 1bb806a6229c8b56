package mapper

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"biblegen/internal/adapter/analyzer"
	"biblegen/internal/domain"
)

// tieEpsilon is the score difference under which two candidates are tied.
const tieEpsilon = 0.001

// GenerateWithFallback builds the base mapping and then tries to recover
// unresolved entries by textual alignment against other versions. Entries
// absent because of a declared versification scheme are left alone.
func (m *Mapper) GenerateWithFallback(corpus domain.Corpus) (*domain.CrossReferenceMap, error) {
	xref, err := m.Generate(corpus)
	if err != nil {
		return nil, err
	}

	versions := corpus.Versions()
	for _, canonical := range sortedKeys(xref.Mappings) {
		cref, err := domain.ParseCanonicalRef(canonical)
		if err != nil {
			continue
		}
		perVersion := xref.Mappings[canonical]

		var aligned []string
		for _, version := range versions {
			entry := perVersion[version]
			if !entry.IsNull() || isVersificationMismatch(entry) {
				continue
			}
			if target, ok := m.alignFromOtherVersions(corpus, cref, version, versions); ok {
				perVersion[version] = domain.RefEntry(target.String())
				aligned = append(aligned, version)
			}
		}

		for _, version := range aligned {
			if c, ok := m.refConflict(cref, version, perVersion[version], corpus); ok {
				xref.Conflicts = append(xref.Conflicts, c)
			}
		}
	}

	metrics := m.ComputeMetrics(xref)
	xref.Metrics = &metrics
	return xref, nil
}

// alignFromOtherVersions takes the reference's text from the first other
// version (by code) that holds it directly and aligns it into target.
func (m *Mapper) alignFromOtherVersions(corpus domain.Corpus, cref domain.CanonicalRef, target string, versions []string) (domain.CanonicalRef, bool) {
	targetChapters, ok := corpus[target]
	if !ok {
		return domain.CanonicalRef{}, false
	}
	for _, source := range versions {
		if source == target {
			continue
		}
		chapter, ok := corpus[source][cref.ChapterKey()]
		if !ok {
			continue
		}
		verse, ok := chapter.Verses[cref.Verse]
		if !ok {
			continue
		}
		if aligned, ok := m.AlignText(cref.String(), verse.Text, targetChapters); ok {
			return aligned, true
		}
	}
	return domain.CanonicalRef{}, false
}

// AlignText finds the verse in the target version's chapter of canonical
// whose text best matches sourceText. Only candidates scoring at least the
// Jaccard threshold are considered. Near-ties go to the lexicographically
// smaller reference string, so verse "10" beats verse "5".
func (m *Mapper) AlignText(canonical, sourceText string, target domain.VersionChapters) (domain.CanonicalRef, bool) {
	cref, err := domain.ParseCanonicalRef(canonical)
	if err != nil {
		return domain.CanonicalRef{}, false
	}
	chapter, ok := target[cref.ChapterKey()]
	if !ok {
		return domain.CanonicalRef{}, false
	}

	var (
		best      domain.CanonicalRef
		bestScore float64
		found     bool
	)
	for _, key := range chapter.SortedVerseKeys() {
		score := m.TextualSimilarity(sourceText, chapter.Verses[key].Text)
		if score < m.config.JaccardThreshold {
			continue
		}
		candidate := domain.CanonicalRef{Book: cref.Book, Chapter: cref.Chapter, Verse: key}

		switch {
		case !found:
			best, bestScore, found = candidate, score, true
		case score > bestScore:
			best, bestScore = candidate, score
		case math.Abs(score-bestScore) < tieEpsilon && candidate.String() < best.String():
			best, bestScore = candidate, score
		}
	}
	return best, found
}

// TextualSimilarity scores two verse texts in [0,1]. Jaccard similarity of
// the token sets is primary; scores just under the threshold are averaged
// with normalized Levenshtein similarity when that passes its own threshold.
func (m *Mapper) TextualSimilarity(a, b string) float64 {
	jaccard := m.jaccard(a, b)
	if jaccard >= m.config.JaccardThreshold {
		return jaccard
	}

	if jaccard >= m.config.JaccardMin && jaccard < m.config.JaccardMax {
		lev := levenshteinSimilarity(m.cache.Normalized(a), m.cache.Normalized(b))
		if lev >= m.config.LevenshteinThreshold {
			return (jaccard + lev) / 2
		}
	}
	return jaccard
}

func (m *Mapper) jaccard(a, b string) float64 {
	return jaccardSimilarity(m.cache.Tokens(a), m.cache.Tokens(b))
}

func jaccardSimilarity(a, b analyzer.TokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// levenshteinSimilarity is 1 - distance/longest rune length.
func levenshteinSimilarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
