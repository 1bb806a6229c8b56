package parser

import "testing"

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
		want    Format
	}{
		{"code bsb", "", "bsb", FormatBSB},
		{"content bsb", "The Berean Standard Bible", "x", FormatBSB},
		{"code web", "", "WEB", FormatWEB},
		{"content asv", "American Standard Version", "x", FormatASV},
		{"code oeb", "", "oeb", FormatOEB},
		{"fallback", "plain text", "kjv", FormatKJV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.content, tt.code); got != tt.want {
				t.Errorf("DetectFormat = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{FormatKJV, FormatASV, FormatWEB, FormatOEB, FormatBSB} {
		got, err := ParseFormat(f.String())
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %v, %v", f.String(), got, err)
		}
	}
	if _, err := ParseFormat("vulgate"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestVersionDisplayName(t *testing.T) {
	if got := VersionDisplayName("KJV"); got != "King James Version" {
		t.Errorf("got %q", got)
	}
	if got := VersionDisplayName("nrsv"); got != "NRSV" {
		t.Errorf("got %q", got)
	}
}
