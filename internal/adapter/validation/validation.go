package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"biblegen/internal/domain"
)

var (
	verseNumberPattern   = regexp.MustCompile(`^\d+(-\d+)?$`)
	scriptPattern        = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	iframePattern        = regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`)
	eventHandlerPattern  = regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*')`)
	javascriptURIPattern = regexp.MustCompile(`(?i)javascript:`)
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Context locates an issue inside a dataset.
type Context struct {
	Version string `json:"version,omitempty"`
	Book    string `json:"book,omitempty"`
	Chapter uint32 `json:"chapter,omitempty"`
	Verse   string `json:"verse,omitempty"`
}

type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Context  Context  `json:"context"`
}

type Statistics struct {
	TotalBooks      int `json:"total_books"`
	TotalChapters   int `json:"total_chapters"`
	TotalVerses     int `json:"total_verses"`
	MalformedVerses int `json:"malformed_verses"`
	DuplicateVerses int `json:"duplicate_verses"`
	MissingVerses   int `json:"missing_verses"`
}

// Result is valid when there are no errors; warnings never invalidate.
type Result struct {
	Valid      bool       `json:"valid"`
	Errors     []Issue    `json:"errors"`
	Warnings   []Issue    `json:"warnings"`
	Statistics Statistics `json:"statistics"`
}

// ValidateDataset checks every verse of a parsed source text for malformed
// numbers, empty text, duplicates, leftover script markup and gaps.
func ValidateDataset(src domain.SourceText) Result {
	res := Result{Errors: []Issue{}, Warnings: []Issue{}}

	for _, book := range src.Books {
		res.Statistics.TotalChapters += len(book.Chapters)
		for _, ch := range book.Chapters {
			seen := make(map[string]int, len(ch.Verses))

			for idx, verse := range ch.Verses {
				res.Statistics.TotalVerses++
				ctx := Context{Version: src.Version, Book: book.Name, Chapter: ch.Number, Verse: verse.Number}

				if err := validateVerse(verse); err != nil {
					res.Statistics.MalformedVerses++
					res.Errors = append(res.Errors, Issue{
						Severity: SeverityError,
						Message:  fmt.Sprintf("Malformed verse format: %v", err),
						Context:  ctx,
					})
				}

				if first, dup := seen[verse.Number]; dup {
					res.Statistics.DuplicateVerses++
					res.Warnings = append(res.Warnings, Issue{
						Severity: SeverityWarning,
						Message:  fmt.Sprintf("Duplicate verse number '%s' found at positions %d and %d", verse.Number, first, idx),
						Context:  ctx,
					})
				} else {
					seen[verse.Number] = idx
				}

				if msg, ok := checkMarkup(verse.Text); ok {
					res.Warnings = append(res.Warnings, Issue{Severity: SeverityWarning, Message: msg, Context: ctx})
				}
			}

			res.Statistics.MissingVerses += len(MissingVerses(ch.Verses))
		}
	}
	res.Statistics.TotalBooks = len(src.Books)
	res.Valid = len(res.Errors) == 0
	return res
}

func validateVerse(v domain.VerseData) error {
	if strings.TrimSpace(v.Text) == "" {
		return fmt.Errorf("verse text is empty")
	}
	if !verseNumberPattern.MatchString(v.Number) {
		return fmt.Errorf("invalid verse number format: '%s'", v.Number)
	}
	return nil
}

func checkMarkup(text string) (string, bool) {
	if scriptPattern.MatchString(text) {
		return "Script tags detected in verse text", true
	}
	if strings.Contains(text, "<script") || strings.Contains(text, "</script>") {
		return "Potential script injection detected", true
	}
	return "", false
}

// MissingVerses returns the verse numbers absent between 1 and the highest
// leading number present. Ranges count by their first number.
func MissingVerses(verses []domain.VerseData) []uint32 {
	present := make(map[uint32]bool, len(verses))
	var highest uint32
	for _, v := range verses {
		lead, _, _ := strings.Cut(v.Number, "-")
		n, err := strconv.ParseUint(lead, 10, 32)
		if err != nil {
			continue
		}
		present[uint32(n)] = true
		highest = max(highest, uint32(n))
	}

	var missing []uint32
	for n := uint32(1); n <= highest; n++ {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	return missing
}

type DuplicateEntry struct {
	Verse string `json:"verse"`
	Count int    `json:"count"`
}

// DetectDuplicates reports verse numbers that occur more than once, sorted
// by verse number.
func DetectDuplicates(verses []domain.VerseData) []DuplicateEntry {
	counts := make(map[string]int)
	for _, v := range verses {
		counts[v.Number]++
	}
	var dups []DuplicateEntry
	for num, n := range counts {
		if n > 1 {
			dups = append(dups, DuplicateEntry{Verse: num, Count: n})
		}
	}
	sort.Slice(dups, func(i, j int) bool { return dups[i].Verse < dups[j].Verse })
	return dups
}

// StripUnsafe removes script and iframe blocks, inline event handlers and
// javascript: URIs. Escaping is left to the renderers.
func StripUnsafe(text string) string {
	s := scriptPattern.ReplaceAllString(text, "")
	s = iframePattern.ReplaceAllString(s, "")
	s = eventHandlerPattern.ReplaceAllString(s, "")
	return javascriptURIPattern.ReplaceAllString(s, "")
}
