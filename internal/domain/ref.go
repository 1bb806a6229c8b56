package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// CanonicalRef is the Book.Chapter.Verse identity shared across versions.
// Verse is kept as a string because it may be a range ("20-21").
type CanonicalRef struct {
	Book    string
	Chapter uint32
	Verse   string
}

// ParseCanonicalRef splits "Book.Chapter.Verse". Exactly three components are
// required and the chapter must be an unsigned integer.
func ParseCanonicalRef(s string) (CanonicalRef, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return CanonicalRef{}, &ReferenceError{Ref: s, Reason: "expected Book.Chapter.Verse"}
	}
	chapter, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return CanonicalRef{}, &ReferenceError{Ref: s, Reason: fmt.Sprintf("invalid chapter %q", parts[1])}
	}
	return CanonicalRef{Book: parts[0], Chapter: uint32(chapter), Verse: parts[2]}, nil
}

func (r CanonicalRef) String() string {
	return fmt.Sprintf("%s.%d.%s", r.Book, r.Chapter, r.Verse)
}

// ChapterKey returns the "Book.Chapter" key of the reference's chapter.
func (r CanonicalRef) ChapterKey() string {
	return ChapterKey(r.Book, r.Chapter)
}

// SameChapter reports whether both references point into the same chapter.
func (r CanonicalRef) SameChapter(o CanonicalRef) bool {
	return r.Book == o.Book && r.Chapter == o.Chapter
}
