package domain

import (
	"fmt"
	"sort"
)

// SourceText is one translation as read from its plain-text dataset.
type SourceText struct {
	Version  string         `json:"version"`
	Books    []BookData     `json:"books"`
	Metadata SourceMetadata `json:"metadata"`
}

type SourceMetadata struct {
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
}

type BookData struct {
	Name         string        `json:"name"`
	Abbreviation string        `json:"abbreviation"`
	Chapters     []ChapterData `json:"chapters"`
}

type ChapterData struct {
	Number uint32      `json:"number"`
	Verses []VerseData `json:"verses"`
}

// VerseData is a verse before it has been given an identity. Number may be
// a range such as "20-21".
type VerseData struct {
	Number    string   `json:"number"`
	Text      string   `json:"text"`
	Footnotes []string `json:"footnotes,omitempty"`
}

// Verse is immutable once built and owned by its Chapter.
type Verse struct {
	ID           string `json:"id"`
	Number       string `json:"number"`
	Text         string `json:"text"`
	Anchor       string `json:"anchor"`
	CanonicalRef string `json:"canonical_ref"`
}

type ChapterMetadata struct {
	VerseCount  int     `json:"verse_count"`
	LastUpdated *string `json:"last_updated"`
}

// Chapter holds the verses of one chapter keyed by verse number string.
type Chapter struct {
	Book     string           `json:"book"`
	Number   uint32           `json:"chapter"`
	Verses   map[string]Verse `json:"verses"`
	Metadata ChapterMetadata  `json:"metadata"`
}

// Key returns the "Book.Chapter" key the chapter is stored under.
func (c Chapter) Key() string {
	return ChapterKey(c.Book, c.Number)
}

// SortedVerseKeys returns the chapter's verse keys in string order.
func (c Chapter) SortedVerseKeys() []string {
	keys := make([]string, 0, len(c.Verses))
	for k := range c.Verses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ChapterKey(book string, chapter uint32) string {
	return fmt.Sprintf("%s.%d", book, chapter)
}

// VersionChapters maps "Book.Chapter" to the chapter for one version.
type VersionChapters map[string]Chapter

// Corpus maps version code to that version's chapters. It is the mapper's
// only input and is read-only once assembled.
type Corpus map[string]VersionChapters

// Versions returns the version codes in sorted order.
func (c Corpus) Versions() []string {
	versions := make([]string, 0, len(c))
	for v := range c {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// Stats counts books, chapters and verses across all versions.
func (c Corpus) Stats() CorpusStats {
	var stats CorpusStats
	books := make(map[string]struct{})
	for _, chapters := range c {
		for _, ch := range chapters {
			books[ch.Book] = struct{}{}
			stats.Chapters++
			stats.Verses += len(ch.Verses)
		}
	}
	stats.Books = len(books)
	return stats
}

type CorpusStats struct {
	Books    int `json:"books"`
	Chapters int `json:"chapters"`
	Verses   int `json:"verses"`
}
