package domain

import "encoding/json"

// ChapterJSON is the per-chapter API document.
type ChapterJSON struct {
	SchemaVersion string            `json:"schema_version"`
	Book          string            `json:"book"`
	Chapter       uint32            `json:"chapter"`
	Version       string            `json:"version"`
	Verses        map[string]string `json:"verses"`
	Metadata      ChapterMetadata   `json:"metadata"`
	Extensions    json.RawMessage   `json:"extensions"`
}

type VersionEntry struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	BookCount    int    `json:"book_count"`
	ChapterCount int    `json:"chapter_count"`
}

type VersionsJSON struct {
	SchemaVersion string         `json:"schema_version"`
	Versions      []VersionEntry `json:"versions"`
}

type BookEntry struct {
	Name         string `json:"name"`
	ChapterCount int    `json:"chapter_count"`
}

type BooksJSON struct {
	SchemaVersion string      `json:"schema_version"`
	Books         []BookEntry `json:"books"`
}

type APIEndpoints struct {
	Versions  string `json:"versions"`
	Books     string `json:"books"`
	CrossRefs string `json:"crossrefs"`
	Chapters  string `json:"chapters"`
}

// Manifest describes one build of the static API.
type Manifest struct {
	SchemaVersion     string                `json:"schema_version"`
	BuildTimestamp    string                `json:"build_timestamp"`
	SourceChecksums   map[string]string     `json:"source_checksums"`
	AvailableVersions []string              `json:"available_versions"`
	APIEndpoints      APIEndpoints          `json:"api_endpoints"`
	SchemaLocations   map[string]string     `json:"schema_locations"`
	MapperThresholds  *SimilarityThresholds `json:"mapper_thresholds,omitempty"`
	Versification     map[string][]string   `json:"versification,omitempty"`
	CrossRefsSHA256   string                `json:"crossrefs_sha256,omitempty"`
	Extensions        json.RawMessage       `json:"extensions"`
}

// EmptyExtensions is the "{}" placeholder written into extension fields.
var EmptyExtensions = json.RawMessage(`{}`)
