package parser

import (
	"regexp"
	"strings"
	"unicode"
)

var bookNamePattern = regexp.MustCompile(`^[A-Z][a-zA-Z\s]+$`)

var bookNames = []string{
	"Genesis", "Exodus", "Leviticus", "Numbers", "Deuteronomy",
	"Joshua", "Judges", "Ruth", "1 Samuel", "2 Samuel", "1 Kings", "2 Kings",
	"1 Chronicles", "2 Chronicles", "Ezra", "Nehemiah", "Esther", "Job",
	"Psalm", "Psalms", "Proverbs", "Ecclesiastes", "Song of Solomon", "Song of Songs",
	"Isaiah", "Jeremiah", "Lamentations", "Ezekiel", "Daniel", "Hosea", "Joel",
	"Amos", "Obadiah", "Jonah", "Micah", "Nahum", "Habakkuk", "Zephaniah",
	"Haggai", "Zechariah", "Malachi",
	"Matthew", "Mark", "Luke", "John", "Acts", "Romans", "1 Corinthians",
	"2 Corinthians", "Galatians", "Ephesians", "Philippians", "Colossians",
	"1 Thessalonians", "2 Thessalonians", "1 Timothy", "2 Timothy", "Titus",
	"Philemon", "Hebrews", "James", "1 Peter", "2 Peter", "1 John", "2 John",
	"3 John", "Jude", "Revelation",
}

var knownBooks = func() map[string]struct{} {
	m := make(map[string]struct{}, len(bookNames))
	for _, b := range bookNames {
		m[b] = struct{}{}
	}
	return m
}()

var abbreviations = map[string]string{
	"Genesis": "Gen", "Exodus": "Exod", "Leviticus": "Lev", "Numbers": "Num",
	"Deuteronomy": "Deut", "Joshua": "Josh", "Judges": "Judg", "Ruth": "Ruth",
	"1 Samuel": "1Sam", "2 Samuel": "2Sam", "1 Kings": "1Kgs", "2 Kings": "2Kgs",
	"1 Chronicles": "1Chr", "2 Chronicles": "2Chr", "Ezra": "Ezra", "Nehemiah": "Neh",
	"Esther": "Esth", "Job": "Job", "Psalm": "Ps", "Psalms": "Ps", "Proverbs": "Prov",
	"Ecclesiastes": "Eccl", "Song of Solomon": "Song", "Song of Songs": "Song",
	"Isaiah": "Isa", "Jeremiah": "Jer", "Lamentations": "Lam", "Ezekiel": "Ezek",
	"Daniel": "Dan", "Hosea": "Hos", "Joel": "Joel", "Amos": "Amos", "Obadiah": "Obad",
	"Jonah": "Jonah", "Micah": "Mic", "Nahum": "Nah", "Habakkuk": "Hab",
	"Zephaniah": "Zeph", "Haggai": "Hag", "Zechariah": "Zech", "Malachi": "Mal",
	"Matthew": "Matt", "Mark": "Mark", "Luke": "Luke", "John": "John", "Acts": "Acts",
	"Romans": "Rom", "1 Corinthians": "1Cor", "2 Corinthians": "2Cor", "Galatians": "Gal",
	"Ephesians": "Eph", "Philippians": "Phil", "Colossians": "Col",
	"1 Thessalonians": "1Thess", "2 Thessalonians": "2Thess", "1 Timothy": "1Tim",
	"2 Timothy": "2Tim", "Titus": "Titus", "Philemon": "Phlm", "Hebrews": "Heb",
	"James": "Jas", "1 Peter": "1Pet", "2 Peter": "2Pet", "1 John": "1John",
	"2 John": "2John", "3 John": "3John", "Jude": "Jude", "Revelation": "Rev",
}

// BookAbbreviation returns the standard abbreviation of a book, or the
// first three words of an unknown name.
func BookAbbreviation(name string) string {
	if abbr, ok := abbreviations[name]; ok {
		return abbr
	}
	words := strings.Fields(name)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}

// BookName reports whether line is a book heading. Known names match
// exactly; otherwise up to four capitalized words are accepted.
func BookName(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}
	if _, ok := knownBooks[trimmed]; ok {
		return trimmed, true
	}

	if !bookNamePattern.MatchString(trimmed) || len(trimmed) <= 2 || strings.Contains(trimmed, "Chapter") {
		return "", false
	}
	words := strings.Fields(trimmed)
	if len(words) > 4 {
		return "", false
	}
	for _, w := range words {
		r := []rune(w)[0]
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return "", false
		}
	}
	return trimmed, true
}
