package parser

import (
	"fmt"
	"strings"
)

// Format identifies the source layout of a translation.
type Format int

const (
	FormatKJV Format = iota
	FormatASV
	FormatWEB
	FormatOEB
	FormatBSB
)

func (f Format) String() string {
	switch f {
	case FormatASV:
		return "asv"
	case FormatWEB:
		return "web"
	case FormatOEB:
		return "oeb"
	case FormatBSB:
		return "bsb"
	default:
		return "kjv"
	}
}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "kjv":
		return FormatKJV, nil
	case "asv":
		return FormatASV, nil
	case "web":
		return FormatWEB, nil
	case "oeb":
		return FormatOEB, nil
	case "bsb":
		return FormatBSB, nil
	default:
		return FormatKJV, fmt.Errorf("unknown bible format: %s", s)
	}
}

// DetectFormat guesses the format from the version code, then from marker
// strings in the content. KJV is the fallback.
func DetectFormat(content, versionCode string) Format {
	code := strings.ToLower(versionCode)
	switch {
	case strings.Contains(code, "bsb") || strings.Contains(content, "Berean Standard Bible") || strings.Contains(content, "BSB"):
		return FormatBSB
	case strings.Contains(code, "web") || strings.Contains(content, "WEB") || strings.Contains(content, "World English Bible"):
		return FormatWEB
	case strings.Contains(code, "asv") || strings.Contains(content, "American Standard Version"):
		return FormatASV
	case strings.Contains(code, "oeb") || strings.Contains(content, "Open English Bible"):
		return FormatOEB
	default:
		return FormatKJV
	}
}

// splitsEmbeddedVerses reports whether "C:V" markers inside a verse line
// start new verses.
func (f Format) splitsEmbeddedVerses() bool {
	return f != FormatBSB
}

var versionNames = map[string]string{
	"kjv": "King James Version",
	"asv": "American Standard Version",
	"web": "World English Bible",
	"oeb": "Open English Bible",
	"bsb": "Berean Standard Bible",
}

// VersionDisplayName returns the full name of a known version code, or the
// upper-cased code otherwise.
func VersionDisplayName(code string) string {
	if name, ok := versionNames[strings.ToLower(code)]; ok {
		return name
	}
	return strings.ToUpper(code)
}
