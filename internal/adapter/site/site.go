// Package site renders the static HTML reader, sitemap and robots file.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"biblegen/internal/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

const bibleDir = "bible"

type Options struct {
	BaseURL     string
	VersionName func(code string) string
	// Redirects writes one Book.Chapter.Verse.html page per verse that
	// forwards to the verse anchor.
	Redirects bool
}

// Generator writes pages under an output directory.
type Generator struct {
	dir  string
	opts Options
	tmpl *template.Template
}

func New(dir string, opts Options) (*Generator, error) {
	if opts.VersionName == nil {
		opts.VersionName = strings.ToUpper
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Generator{dir: dir, opts: opts, tmpl: tmpl}, nil
}

type page struct {
	Title       string
	Description string
	Canonical   string
}

type versionLink struct {
	Code         string
	Name         string
	ChapterCount int
}

type bookLink struct {
	Name         string
	URL          string
	ChapterCount int
}

type chapterLink struct {
	Number uint32
	URL    string
}

type crossLink struct {
	Version string
	Ref     string
	URL     string
	Reason  string
}

type verseView struct {
	Number       string
	Text         string
	Anchor       string
	CanonicalRef string
	Links        []crossLink
}

type otherVersion struct {
	Code string
	URL  string
}

type indexPage struct {
	page
	Versions []versionLink
	Books    []bookLink
}

type versionPage struct {
	page
	VersionCode string
	VersionName string
	Books       []bookLink
}

type bookPage struct {
	page
	VersionCode string
	VersionName string
	Book        string
	Chapters    []chapterLink
}

type chapterPage struct {
	page
	VersionCode   string
	VersionName   string
	Book          string
	Chapter       uint32
	Verses        []verseView
	OtherVersions []otherVersion
	Prev, Next    string
	LastUpdated   string
}

type redirectPage struct {
	Ref         string
	VersionName string
	Target      string
}

// ChapterURL is the site path of a chapter page.
func ChapterURL(version, book string, chapter uint32) string {
	return "/" + path.Join(bibleDir, version, book, strconv.FormatUint(uint64(chapter), 10)+".html")
}

func (g *Generator) abs(p string) string {
	if g.opts.BaseURL == "" {
		return ""
	}
	return g.opts.BaseURL + p
}

func (g *Generator) render(rel, name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := g.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", rel, err)
	}
	out := filepath.Join(g.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return out, nil
}

// chaptersByBook groups one version's chapters by book, chapters ascending.
func chaptersByBook(chapters domain.VersionChapters) map[string][]domain.Chapter {
	out := make(map[string][]domain.Chapter)
	for _, ch := range chapters {
		out[ch.Book] = append(out[ch.Book], ch)
	}
	for _, list := range out {
		sort.Slice(list, func(i, j int) bool { return list[i].Number < list[j].Number })
	}
	return out
}

func sortedBooks[V any](m map[string]V) []string {
	books := make([]string, 0, len(m))
	for b := range m {
		books = append(books, b)
	}
	sort.Strings(books)
	return books
}

// WriteIndex writes the root index listing versions and books. Each book
// links to its first chapter in the first version that has it.
func (g *Generator) WriteIndex(corpus domain.Corpus) (string, error) {
	data := indexPage{page: page{
		Title:       "Bible Versions",
		Description: "Read the Bible in multiple translations by book, chapter and verse.",
		Canonical:   g.abs("/"),
	}}

	owners := make(map[string]string)
	for _, code := range corpus.Versions() {
		data.Versions = append(data.Versions, versionLink{
			Code:         code,
			Name:         g.opts.VersionName(code),
			ChapterCount: len(corpus[code]),
		})
		for book, list := range chaptersByBook(corpus[code]) {
			if _, ok := owners[book]; !ok {
				owners[book] = ChapterURL(code, book, list[0].Number)
			}
		}
	}
	for _, book := range sortedBooks(owners) {
		data.Books = append(data.Books, bookLink{Name: book, URL: owners[book]})
	}

	return g.render("index.html", "index.html", data)
}

// WriteVersion writes the version index and one index per book.
func (g *Generator) WriteVersion(corpus domain.Corpus, version string) error {
	name := g.opts.VersionName(version)
	byBook := chaptersByBook(corpus[version])

	vp := versionPage{
		page:        page{Title: name, Description: "Books of the " + name, Canonical: g.abs("/" + bibleDir + "/" + version + "/")},
		VersionCode: version,
		VersionName: name,
	}
	for _, book := range sortedBooks(byBook) {
		list := byBook[book]
		vp.Books = append(vp.Books, bookLink{
			Name:         book,
			URL:          "/" + path.Join(bibleDir, version, book) + "/",
			ChapterCount: len(list),
		})

		bp := bookPage{
			page:        page{Title: book + " (" + name + ")", Description: "Chapters of " + book},
			VersionCode: version,
			VersionName: name,
			Book:        book,
		}
		for _, ch := range list {
			bp.Chapters = append(bp.Chapters, chapterLink{Number: ch.Number, URL: ChapterURL(version, book, ch.Number)})
		}
		if _, err := g.render(path.Join(bibleDir, version, book, "index.html"), "book.html", bp); err != nil {
			return err
		}
	}

	_, err := g.render(path.Join(bibleDir, version, "index.html"), "version.html", vp)
	return err
}

// WriteChapter writes one chapter page. Neighbour links only point at
// chapters that exist in the same version and book; xref may be nil.
func (g *Generator) WriteChapter(corpus domain.Corpus, version string, ch domain.Chapter, xref *domain.CrossReferenceMap) (string, error) {
	name := g.opts.VersionName(version)
	url := ChapterURL(version, ch.Book, ch.Number)

	data := chapterPage{
		page: page{
			Title:       fmt.Sprintf("%s %d (%s)", ch.Book, ch.Number, name),
			Description: fmt.Sprintf("%s chapter %d in the %s", ch.Book, ch.Number, name),
			Canonical:   g.abs(url),
		},
		VersionCode: version,
		VersionName: name,
		Book:        ch.Book,
		Chapter:     ch.Number,
	}
	if ch.Metadata.LastUpdated != nil {
		data.LastUpdated = *ch.Metadata.LastUpdated
	}

	chapters := corpus[version]
	if ch.Number > 1 {
		if _, ok := chapters[domain.ChapterKey(ch.Book, ch.Number-1)]; ok {
			data.Prev = ChapterURL(version, ch.Book, ch.Number-1)
		}
	}
	if _, ok := chapters[domain.ChapterKey(ch.Book, ch.Number+1)]; ok {
		data.Next = ChapterURL(version, ch.Book, ch.Number+1)
	}

	for _, other := range corpus.Versions() {
		if other == version {
			continue
		}
		if _, ok := corpus[other][ch.Key()]; ok {
			data.OtherVersions = append(data.OtherVersions, otherVersion{Code: other, URL: ChapterURL(other, ch.Book, ch.Number)})
		}
	}

	for _, key := range SortVerseKeys(ch.Verses) {
		v := ch.Verses[key]
		data.Verses = append(data.Verses, verseView{
			Number:       v.Number,
			Text:         v.Text,
			Anchor:       v.Anchor,
			CanonicalRef: v.CanonicalRef,
			Links:        crossLinks(xref, v.CanonicalRef, version),
		})
	}

	out, err := g.render(strings.TrimPrefix(url, "/"), "chapter.html", data)
	if err != nil {
		return "", err
	}

	if g.opts.Redirects {
		for key := range ch.Verses {
			if err := g.writeRedirect(version, name, ch, key); err != nil {
				return "", err
			}
		}
	}
	return out, nil
}

func (g *Generator) writeRedirect(version, name string, ch domain.Chapter, verse string) error {
	ref := domain.CanonicalRef{Book: ch.Book, Chapter: ch.Number, Verse: verse}.String()
	data := redirectPage{
		Ref:         ref,
		VersionName: name,
		Target:      ChapterURL(version, ch.Book, ch.Number) + "#v" + verse,
	}
	_, err := g.render(path.Join(bibleDir, version, ch.Book, ref+".html"), "redirect.html", data)
	return err
}

func crossLinks(xref *domain.CrossReferenceMap, canonical, version string) []crossLink {
	if xref == nil {
		return nil
	}
	entries, ok := xref.Mappings[canonical]
	if !ok {
		return nil
	}

	versions := make([]string, 0, len(entries))
	for v := range entries {
		if v != version {
			versions = append(versions, v)
		}
	}
	sort.Strings(versions)

	links := make([]crossLink, 0, len(versions))
	for _, v := range versions {
		entry := entries[v]
		ref, ok := entry.Ref()
		if !ok {
			links = append(links, crossLink{Version: v, Reason: entry.Reason()})
			continue
		}
		link := crossLink{Version: v, Ref: ref}
		if cr, err := domain.ParseCanonicalRef(ref); err == nil {
			link.URL = ChapterURL(v, cr.Book, cr.Chapter) + "#v" + cr.Verse
		}
		links = append(links, link)
	}
	return links
}

// WriteAll renders every page of the corpus and returns the number of
// chapter pages written.
func (g *Generator) WriteAll(corpus domain.Corpus, xref *domain.CrossReferenceMap) (int, error) {
	if _, err := g.WriteIndex(corpus); err != nil {
		return 0, err
	}

	n := 0
	for _, version := range corpus.Versions() {
		if err := g.WriteVersion(corpus, version); err != nil {
			return n, err
		}
		keys := make([]string, 0, len(corpus[version]))
		for k := range corpus[version] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := g.WriteChapter(corpus, version, corpus[version][k], xref); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// SortVerseKeys orders verse keys by their leading number, then as strings,
// so that "2" precedes "10" and "20-21" follows "20".
func SortVerseKeys(verses map[string]domain.Verse) []string {
	keys := make([]string, 0, len(verses))
	for k := range verses {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := leadingNumber(keys[i]), leadingNumber(keys[j])
		if a != b {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

func leadingNumber(s string) uint64 {
	end := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if end == -1 {
		end = len(s)
	}
	n, _ := strconv.ParseUint(s[:end], 10, 64)
	return n
}
