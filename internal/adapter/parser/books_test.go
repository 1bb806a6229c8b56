package parser

import "testing"

func TestBookName(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{"Genesis", "Genesis", true},
		{"  1 Kings  ", "1 Kings", true},
		{"Song of Songs", "Song of Songs", true},
		{"Wisdom Of Solomon", "Wisdom Of Solomon", true},
		{"Chapter One", "", false},
		{"Ab", "", false},
		{"And God said", "", false},
		{"One Two Three Four Five", "", false},
		{"1 In the beginning", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BookName(tt.line)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BookName(%q) = %q, %v; want %q, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBookAbbreviation(t *testing.T) {
	tests := map[string]string{
		"Genesis":             "Gen",
		"Song of Solomon":     "Song",
		"1 Thessalonians":     "1Thess",
		"Revelation":          "Rev",
		"Wisdom":              "Wisdom",
		"Prayer Of Great Men": "Prayer Of Great",
	}
	for in, want := range tests {
		if got := BookAbbreviation(in); got != want {
			t.Errorf("BookAbbreviation(%q) = %q, want %q", in, got, want)
		}
	}
}
