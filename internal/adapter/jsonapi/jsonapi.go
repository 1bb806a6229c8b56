// Package jsonapi writes the static JSON API: per-chapter documents,
// version and book indexes, the cross-reference map and the manifest.
package jsonapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"biblegen/internal/adapter/compress"
	"biblegen/internal/domain"
)

const (
	VersionsFile  = "versions.json"
	BooksFile     = "books.json"
	CrossRefsFile = "crossrefs.json"
	ManifestFile  = "manifest.json"

	DefaultSchemaVersion = "1.0"
)

type Options struct {
	SchemaVersion string
	Minify        bool
	Compression   compress.Codec
	// VersionName turns a version code into its display name.
	VersionName func(code string) string
}

// Writer writes API documents under a single output directory.
type Writer struct {
	dir  string
	opts Options
}

func NewWriter(dir string, opts Options) *Writer {
	if opts.SchemaVersion == "" {
		opts.SchemaVersion = DefaultSchemaVersion
	}
	if opts.VersionName == nil {
		opts.VersionName = strings.ToUpper
	}
	return &Writer{dir: dir, opts: opts}
}

func (w *Writer) Dir() string { return w.dir }

// Marshal encodes v with two-space indentation, or compactly when minify is
// set. HTML characters are not escaped.
func Marshal(v any, minify bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if !minify {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (w *Writer) write(rel string, v any) (string, []byte, error) {
	data, err := Marshal(v, w.opts.Minify)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode %s: %w", rel, err)
	}

	path := filepath.Join(w.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", nil, fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if _, err := compress.WriteSidecar(path, data, w.opts.Compression); err != nil {
		return "", nil, err
	}
	return path, data, nil
}

// ChapterPath is the API path of a chapter relative to the output root.
func ChapterPath(version, book string, chapter uint32) string {
	return filepath.Join(version, book, strconv.FormatUint(uint64(chapter), 10)+".json")
}

// WriteChapter writes <version>/<book>/<chapter>.json.
func (w *Writer) WriteChapter(ch domain.Chapter, version string) (string, error) {
	verses := make(map[string]string, len(ch.Verses))
	for num, v := range ch.Verses {
		verses[num] = v.Text
	}

	doc := domain.ChapterJSON{
		SchemaVersion: w.opts.SchemaVersion,
		Book:          ch.Book,
		Chapter:       ch.Number,
		Version:       version,
		Verses:        verses,
		Metadata:      ch.Metadata,
		Extensions:    domain.EmptyExtensions,
	}
	path, _, err := w.write(ChapterPath(version, ch.Book, ch.Number), doc)
	return path, err
}

// WriteCorpus writes every chapter of every version.
func (w *Writer) WriteCorpus(corpus domain.Corpus) (int, error) {
	n := 0
	for _, version := range corpus.Versions() {
		chapters := corpus[version]
		keys := make([]string, 0, len(chapters))
		for k := range chapters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := w.WriteChapter(chapters[k], version); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// Versions builds the versions index sorted by code.
func (w *Writer) Versions(corpus domain.Corpus) domain.VersionsJSON {
	doc := domain.VersionsJSON{SchemaVersion: w.opts.SchemaVersion, Versions: []domain.VersionEntry{}}
	for _, code := range corpus.Versions() {
		books := make(map[string]struct{})
		for _, ch := range corpus[code] {
			books[ch.Book] = struct{}{}
		}
		doc.Versions = append(doc.Versions, domain.VersionEntry{
			Code:         code,
			Name:         w.opts.VersionName(code),
			BookCount:    len(books),
			ChapterCount: len(corpus[code]),
		})
	}
	return doc
}

func (w *Writer) WriteVersions(corpus domain.Corpus) (string, error) {
	path, _, err := w.write(VersionsFile, w.Versions(corpus))
	return path, err
}

// Books builds the book index sorted by name. A book's chapter count is the
// largest count found in any version.
func (w *Writer) Books(corpus domain.Corpus) domain.BooksJSON {
	counts := make(map[string]int)
	for _, chapters := range corpus {
		perVersion := make(map[string]int)
		for _, ch := range chapters {
			perVersion[ch.Book]++
		}
		for book, n := range perVersion {
			if n > counts[book] {
				counts[book] = n
			}
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := domain.BooksJSON{SchemaVersion: w.opts.SchemaVersion, Books: make([]domain.BookEntry, 0, len(names))}
	for _, name := range names {
		doc.Books = append(doc.Books, domain.BookEntry{Name: name, ChapterCount: counts[name]})
	}
	return doc
}

func (w *Writer) WriteBooks(corpus domain.Corpus) (string, error) {
	path, _, err := w.write(BooksFile, w.Books(corpus))
	return path, err
}

// WriteCrossRefs writes crossrefs.json and returns its path and SHA-256.
func (w *Writer) WriteCrossRefs(xref *domain.CrossReferenceMap) (string, string, error) {
	path, data, err := w.write(CrossRefsFile, xref)
	if err != nil {
		return "", "", err
	}
	return path, HashBytes(data), nil
}
