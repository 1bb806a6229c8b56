package domain

import "time"

// BuildRecord is what the build store remembers about one completed build.
type BuildRecord struct {
	ID              string            `json:"id"`
	Timestamp       time.Time         `json:"timestamp"`
	ConfigHash      string            `json:"config_hash"`
	SourceChecksums map[string]string `json:"source_checksums"`
	CrossRefsSHA256 string            `json:"crossrefs_sha256"`
	Metrics         *MappingMetrics   `json:"metrics,omitempty"`
	Stats           CorpusStats       `json:"stats"`
}
