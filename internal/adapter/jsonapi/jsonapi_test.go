package jsonapi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"biblegen/internal/adapter/compress"
	"biblegen/internal/domain"
)

func chapter(book string, n uint32, verses map[string]string) domain.Chapter {
	ch := domain.Chapter{Book: book, Number: n, Verses: map[string]domain.Verse{}}
	for num, text := range verses {
		ch.Verses[num] = domain.Verse{Number: num, Text: text}
	}
	ch.Metadata.VerseCount = len(ch.Verses)
	return ch
}

func testCorpus() domain.Corpus {
	corpus := domain.Corpus{"kjv": {}, "web": {}}
	for _, ch := range []domain.Chapter{
		chapter("Genesis", 1, map[string]string{"1": "In the beginning", "2": "And the earth"}),
		chapter("Genesis", 2, map[string]string{"1": "Thus the heavens"}),
		chapter("John", 1, map[string]string{"1": "In the beginning was the Word"}),
	} {
		corpus["kjv"][ch.Key()] = ch
	}
	ch := chapter("Genesis", 1, map[string]string{"1": "In the beginning <God>"})
	corpus["web"][ch.Key()] = ch
	return corpus
}

func TestWriteChapter(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Options{})

	path, err := w.WriteChapter(testCorpus()["web"]["Genesis.1"], "web")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "web", "Genesis", "1.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "\n  \"schema_version\": \"1.0\"")
	require.Contains(t, string(data), "<God>")

	doc, err := ReadChapter(dir, "web", "Genesis", 1)
	require.NoError(t, err)
	require.Equal(t, "Genesis", doc.Book)
	require.Equal(t, uint32(1), doc.Chapter)
	require.Equal(t, map[string]string{"1": "In the beginning <God>"}, doc.Verses)
	require.JSONEq(t, "{}", string(doc.Extensions))
}

func TestWriteChapter_MinifyAndCompress(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Options{Minify: true, Compression: compress.Gzip})

	path, err := w.WriteChapter(testCorpus()["kjv"]["Genesis.1"], "kjv")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(data), "\n"))

	_, err = os.Stat(path + ".gz")
	require.NoError(t, err)
}

func TestWriteCorpus_Deterministic(t *testing.T) {
	corpus := testCorpus()
	a, b := t.TempDir(), t.TempDir()

	n, err := NewWriter(a, Options{}).WriteCorpus(corpus)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	_, err = NewWriter(b, Options{}).WriteCorpus(corpus)
	require.NoError(t, err)

	for _, rel := range []string{"kjv/Genesis/1.json", "kjv/John/1.json", "web/Genesis/1.json"} {
		x, err := os.ReadFile(filepath.Join(a, rel))
		require.NoError(t, err)
		y, err := os.ReadFile(filepath.Join(b, rel))
		require.NoError(t, err)
		require.Equal(t, x, y, rel)
	}
}

func TestVersionsAndBooks(t *testing.T) {
	w := NewWriter(t.TempDir(), Options{VersionName: func(c string) string { return "Name " + c }})
	corpus := testCorpus()

	want := domain.VersionsJSON{SchemaVersion: "1.0", Versions: []domain.VersionEntry{
		{Code: "kjv", Name: "Name kjv", BookCount: 2, ChapterCount: 3},
		{Code: "web", Name: "Name web", BookCount: 1, ChapterCount: 1},
	}}
	if diff := cmp.Diff(want, w.Versions(corpus)); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}

	wantBooks := domain.BooksJSON{SchemaVersion: "1.0", Books: []domain.BookEntry{
		{Name: "Genesis", ChapterCount: 2},
		{Name: "John", ChapterCount: 1},
	}}
	if diff := cmp.Diff(wantBooks, w.Books(corpus)); diff != "" {
		t.Errorf("books mismatch (-want +got):\n%s", diff)
	}

	_, err := w.WriteVersions(corpus)
	require.NoError(t, err)
	_, err = w.WriteBooks(corpus)
	require.NoError(t, err)
}

func TestWriteCrossRefs(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Options{Minify: true})

	xref := &domain.CrossReferenceMap{
		SchemaVersion: "1.0",
		Mappings: map[string]map[string]domain.MappingEntry{
			"Genesis.1.1": {
				"kjv": domain.RefEntry("Genesis.1.1"),
				"web": domain.NullEntry("Chapter 1 not found in Genesis"),
			},
		},
		Conflicts: []domain.MappingConflict{},
	}

	path, sum, err := w.WriteCrossRefs(xref)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, HashBytes(data), sum)
	require.Len(t, sum, 64)

	back, err := ReadCrossRefs(dir)
	require.NoError(t, err)
	got, ok := back.Mappings["Genesis.1.1"]["kjv"].Ref()
	require.True(t, ok)
	require.Equal(t, "Genesis.1.1", got)
	require.Equal(t, "Chapter 1 not found in Genesis", back.Mappings["Genesis.1.1"]["web"].Reason())

	_, sum2, err := NewWriter(t.TempDir(), Options{Minify: true}).WriteCrossRefs(xref)
	require.NoError(t, err)
	require.Equal(t, sum, sum2)
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "kjv.txt")
	require.NoError(t, os.WriteFile(src, []byte("Genesis\n1\n1 text\n"), 0o644))

	checksums, err := SourceChecksums([]string{src, filepath.Join(dir, "missing.txt")})
	require.NoError(t, err)
	require.Len(t, checksums, 1)

	w := NewWriter(dir, Options{})
	in := ManifestInput{
		BuildTime:       time.Date(2024, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3600)),
		Versions:        []string{"web", "kjv"},
		SourceChecksums: checksums,
		Thresholds:      &domain.SimilarityThresholds{Jaccard: 0.7, Levenshtein: 0.15},
		CrossRefsSHA256: "abc",
	}
	sum, err := w.WriteManifest(in)
	require.NoError(t, err)
	require.Len(t, sum, 64)

	m, err := ReadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, "2024-03-04T04:06:07Z", m.BuildTimestamp)
	require.Equal(t, []string{"kjv", "web"}, m.AvailableVersions)
	require.Equal(t, "/{version}/{book}/{chapter}.json", m.APIEndpoints.Chapters)
	require.Equal(t, "/schema/chapter-1.0.json", m.SchemaLocations["chapter"])
	require.Equal(t, "abc", m.CrossRefsSHA256)
	require.NotContains(t, mustRead(t, filepath.Join(dir, ManifestFile)), "versification")
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var v map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &v))
	return string(data)
}
