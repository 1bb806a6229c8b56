// Package parser turns plain-text translations into structured books,
// chapters and verses.
package parser

import (
	"bufio"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"biblegen/internal/adapter/validation"
	"biblegen/internal/domain"
)

const unknownBook = "Unknown"

var (
	versePattern         = regexp.MustCompile(`^\s*(\d+(-\d+)?)\s+(.+)$`)
	chapterPattern       = regexp.MustCompile(`^\s*(?:Chapter\s+)?(\d+)\s*$`)
	footnotePattern      = regexp.MustCompile(`\[(\d+)\]`)
	embeddedVersePattern = regexp.MustCompile(`\s+(\d+):(\d+)(?:\s+|$)`)
)

// Parser builds domain values from source text. Clock stamps chapter
// metadata; a nil Clock leaves last_updated empty.
type Parser struct {
	Clock func() time.Time
}

func NewParser() *Parser {
	return &Parser{Clock: time.Now}
}

// ParseSourceText scans the text line by line. Book headings, chapter
// headings and numbered verse lines are recognized; any other line
// continues the previous verse.
func (p *Parser) ParseSourceText(text string, format Format, version string) domain.SourceText {
	var (
		books       []domain.BookData
		book        *domain.BookData
		chapter     *domain.ChapterData
		prevWasBook bool
	)

	flushChapter := func() {
		if chapter == nil {
			return
		}
		if book == nil {
			book = &domain.BookData{Name: unknownBook, Abbreviation: unknownBook}
		}
		book.Chapters = append(book.Chapters, *chapter)
		chapter = nil
	}
	flushBook := func() {
		if book != nil && len(book.Chapters) > 0 {
			books = append(books, *book)
		}
		book = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if name, ok := BookName(line); ok {
			// A heading directly after another heading belongs to the first.
			hasChapters := book != nil && len(book.Chapters) > 0
			if prevWasBook && !hasChapters && chapter == nil {
				continue
			}
			prevWasBook = true

			if chapter != nil && book != nil {
				book.Chapters = append(book.Chapters, *chapter)
			}
			chapter = nil
			flushBook()
			book = &domain.BookData{Name: name, Abbreviation: BookAbbreviation(name)}
			continue
		}
		prevWasBook = false

		if n, ok := chapterNumber(line); ok {
			flushChapter()
			if book == nil {
				book = &domain.BookData{Name: unknownBook, Abbreviation: unknownBook}
			}
			chapter = &domain.ChapterData{Number: n}
			continue
		}

		if verse, ok := parseVerseLine(line); ok {
			if chapter != nil {
				chapter.Verses = append(chapter.Verses, verse)
			}
			continue
		}

		if chapter != nil && len(chapter.Verses) > 0 {
			last := &chapter.Verses[len(chapter.Verses)-1]
			last.Text += " " + validation.StripUnsafe(line)
		}
	}

	flushChapter()
	flushBook()

	return domain.SourceText{
		Version:  version,
		Books:    books,
		Metadata: domain.SourceMetadata{Language: "en"},
	}
}

func chapterNumber(line string) (uint32, bool) {
	m := chapterPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

func parseVerseLine(line string) (domain.VerseData, bool) {
	m := versePattern.FindStringSubmatch(line)
	if m == nil {
		return domain.VerseData{}, false
	}
	return domain.VerseData{
		Number:    m[1],
		Text:      validation.StripUnsafe(m[3]),
		Footnotes: footnotes(m[3]),
	}, true
}

func footnotes(text string) []string {
	var out []string
	for _, m := range footnotePattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// BuildChapter converts parsed verses into a keyed chapter. Outside BSB,
// "C:V" markers of the same chapter inside a verse start a new verse.
func (p *Parser) BuildChapter(data domain.ChapterData, book string, format Format, version string) domain.Chapter {
	ch := domain.Chapter{
		Book:   book,
		Number: data.Number,
		Verses: make(map[string]domain.Verse, len(data.Verses)),
	}

	for _, vd := range data.Verses {
		parts := []domain.VerseData{vd}
		if format.splitsEmbeddedVerses() {
			parts = splitEmbedded(vd, data.Number)
		}
		for _, part := range parts {
			ch.Verses[part.Number] = domain.Verse{
				ID:           VerseID(version, book, data.Number, part.Number, part.Text),
				Number:       part.Number,
				Text:         part.Text,
				Anchor:       "#v" + part.Number,
				CanonicalRef: domain.CanonicalRef{Book: book, Chapter: data.Number, Verse: part.Number}.String(),
			}
		}
	}

	ch.Metadata.VerseCount = len(ch.Verses)
	if p.Clock != nil {
		ts := p.Clock().UTC().Format(time.RFC3339)
		ch.Metadata.LastUpdated = &ts
	}
	return ch
}

// BuildChapters builds every chapter of a source text, keyed "Book.Chapter".
func (p *Parser) BuildChapters(src domain.SourceText, format Format) domain.VersionChapters {
	out := make(domain.VersionChapters)
	for _, book := range src.Books {
		for _, data := range book.Chapters {
			ch := p.BuildChapter(data, book.Name, format, src.Version)
			out[ch.Key()] = ch
		}
	}
	return out
}

func splitEmbedded(vd domain.VerseData, chapter uint32) []domain.VerseData {
	var out []domain.VerseData
	number, text := vd.Number, vd.Text

	for {
		loc := embeddedVersePattern.FindStringSubmatchIndex(text)
		if loc == nil {
			if t := strings.TrimSpace(text); t != "" {
				out = append(out, domain.VerseData{Number: number, Text: t, Footnotes: footnotes(text)})
			}
			break
		}

		ref, _ := strconv.ParseUint(text[loc[2]:loc[3]], 10, 32)
		if uint32(ref) != chapter {
			out = append(out, domain.VerseData{Number: number, Text: text, Footnotes: footnotes(text)})
			break
		}

		before := strings.TrimSpace(text[:loc[0]])
		after := strings.TrimSpace(text[loc[1]:])
		if before != "" {
			out = append(out, domain.VerseData{Number: number, Text: before, Footnotes: footnotes(text[:loc[0]])})
		}
		if after == "" {
			break
		}
		number, text = text[loc[4]:loc[5]], after
	}

	if len(out) == 0 {
		return []domain.VerseData{vd}
	}
	return out
}

// VerseID is a content hash over the verse's identity and text.
func VerseID(version, book string, chapter uint32, number, text string) string {
	var b strings.Builder
	b.WriteString(version)
	b.WriteString(book)
	b.WriteString(strconv.FormatUint(uint64(chapter), 10))
	b.WriteString(number)
	b.WriteString(text)
	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
