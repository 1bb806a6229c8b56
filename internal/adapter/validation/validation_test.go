package validation

import (
	"strings"
	"testing"

	"biblegen/internal/domain"
)

func source(verses ...domain.VerseData) domain.SourceText {
	return domain.SourceText{
		Version: "kjv",
		Books: []domain.BookData{{
			Name:     "Genesis",
			Chapters: []domain.ChapterData{{Number: 1, Verses: verses}},
		}},
	}
}

func TestValidateDataset_Valid(t *testing.T) {
	res := ValidateDataset(source(
		domain.VerseData{Number: "1", Text: "In the beginning God created the heaven and the earth."},
		domain.VerseData{Number: "2-3", Text: "And the earth was without form."},
	))

	if !res.Valid {
		t.Errorf("expected valid dataset, got errors %+v", res.Errors)
	}
	if res.Statistics.TotalVerses != 2 || res.Statistics.TotalChapters != 1 || res.Statistics.TotalBooks != 1 {
		t.Errorf("unexpected statistics: %+v", res.Statistics)
	}
	if res.Statistics.MissingVerses != 0 {
		t.Errorf("expected no missing verses, got %d", res.Statistics.MissingVerses)
	}
}

func TestValidateDataset_Issues(t *testing.T) {
	res := ValidateDataset(source(
		domain.VerseData{Number: "1", Text: "First."},
		domain.VerseData{Number: "abc", Text: "Bad number."},
		domain.VerseData{Number: "4", Text: "   "},
		domain.VerseData{Number: "1", Text: "Duplicate."},
		domain.VerseData{Number: "5", Text: "Bad <script>alert(1)</script> text"},
	))

	if res.Valid {
		t.Fatal("expected invalid dataset")
	}
	if res.Statistics.MalformedVerses != 2 {
		t.Errorf("expected 2 malformed verses, got %d", res.Statistics.MalformedVerses)
	}
	if res.Statistics.DuplicateVerses != 1 {
		t.Errorf("expected 1 duplicate, got %d", res.Statistics.DuplicateVerses)
	}
	// 2 and 3 are missing below the highest verse number 5.
	if res.Statistics.MissingVerses != 2 {
		t.Errorf("expected 2 missing verses, got %d", res.Statistics.MissingVerses)
	}

	var dupMsg, scriptMsg bool
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, "positions 0 and 3") {
			dupMsg = true
		}
		if strings.Contains(w.Message, "Script tags") && w.Context.Verse == "5" {
			scriptMsg = true
		}
	}
	if !dupMsg || !scriptMsg {
		t.Errorf("missing expected warnings: %+v", res.Warnings)
	}
	if res.Errors[0].Context.Book != "Genesis" || res.Errors[0].Context.Version != "kjv" {
		t.Errorf("expected error context to be filled, got %+v", res.Errors[0].Context)
	}
}

func TestDetectDuplicates(t *testing.T) {
	dups := DetectDuplicates([]domain.VerseData{
		{Number: "2"}, {Number: "1"}, {Number: "2"}, {Number: "1"}, {Number: "1"}, {Number: "3"},
	})
	if len(dups) != 2 {
		t.Fatalf("expected 2 duplicates, got %+v", dups)
	}
	if dups[0] != (DuplicateEntry{Verse: "1", Count: 3}) || dups[1] != (DuplicateEntry{Verse: "2", Count: 2}) {
		t.Errorf("unexpected duplicates: %+v", dups)
	}
}

func TestMissingVerses(t *testing.T) {
	got := MissingVerses([]domain.VerseData{{Number: "1"}, {Number: "4-5"}, {Number: "x"}})
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("expected [2 3], got %v", got)
	}
	if got := MissingVerses(nil); len(got) != 0 {
		t.Errorf("expected none for empty chapter, got %v", got)
	}
}

func TestStripUnsafe(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<script>alert('xss')</script>Hello", "Hello"},
		{"<SCRIPT type=\"x\">\nbad()\n</SCRIPT>ok", "ok"},
		{"before<iframe src=\"x\"></iframe>after", "beforeafter"},
		{`<a onclick="steal()">link</a>`, `<a>link</a>`},
		{"go to javascript:void(0)", "go to void(0)"},
		{"He said \"hello\" and 'goodbye'", "He said \"hello\" and 'goodbye'"},
	}
	for _, tt := range tests {
		if got := StripUnsafe(tt.in); got != tt.want {
			t.Errorf("StripUnsafe(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
