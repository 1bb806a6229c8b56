package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"biblegen/config"
	"biblegen/internal/port"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 2

var (
	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

// SchemaInfo stores schema version and configuration hash.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

// GetSchemaInfo retrieves the current schema info from the database.
func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}

		if versionData := b.Get(keySchemaVersion); versionData != nil {
			if err := json.Unmarshal(versionData, &info.Version); err != nil {
				info.Version = 1
			}
		}
		if hashData := b.Get(keyConfigHash); hashData != nil {
			info.ConfigHash = string(hashData)
		}
		return nil
	})
	return &info, err
}

// SetSchemaInfo stores the schema info in the database.
func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}
		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// ComputeConfigHash hashes the configuration that changes cross-reference
// output. A changed hash means the stored snapshot is stale.
func ComputeConfigHash(cfg *config.Config) string {
	schemes := make([]string, 0, len(cfg.Datasets.Versification))
	for version, scheme := range cfg.Datasets.Versification {
		schemes = append(schemes, version+"="+scheme)
	}
	sort.Strings(schemes)

	relevant := struct {
		Jaccard       float64  `json:"jaccard"`
		Levenshtein   float64  `json:"levenshtein"`
		Fallback      bool     `json:"fallback"`
		SchemaVersion string   `json:"schema_version"`
		Versification []string `json:"versification"`
	}{
		Jaccard:       cfg.Mapper.JaccardThreshold,
		Levenshtein:   cfg.Mapper.LevenshteinThreshold,
		Fallback:      cfg.Mapper.Fallback,
		SchemaVersion: cfg.Output.SchemaVersion,
		Versification: schemes,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// CheckSchema reports whether migration or a rebuild is needed.
func (s *BoltStore) CheckSchema(configHash string) (port.SchemaCheck, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return port.SchemaCheck{}, fmt.Errorf("failed to get schema info: %w", err)
	}
	return checkSchema(info, configHash), nil
}

func checkSchema(info *SchemaInfo, configHash string) port.SchemaCheck {
	result := port.SchemaCheck{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result
	}

	if info.ConfigHash != "" && info.ConfigHash != configHash {
		result.NeedsRebuild = true
		result.Reason = "mapping configuration changed"
	}
	return result
}

// Migrate performs any necessary schema migrations and records the hash.
func (s *BoltStore) Migrate(configHash string) error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}

	for v := info.Version; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v, v+1); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}

	return s.SetSchemaInfo(&SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: configHash,
	})
}

func (s *BoltStore) runMigration(from, to int) error {
	switch {
	case from == 1 && to == 2:
		// v1 kept the whole cross-reference map under one meta key.
		return s.db.Update(func(tx *bbolt.Tx) error {
			if _, err := tx.CreateBucketIfNotExists(bucketMappings); err != nil {
				return err
			}
			return tx.Bucket(bucketMeta).Delete([]byte("crossrefs"))
		})
	default:
		return nil
	}
}

// Clear drops the cross-reference snapshot. Build history and schema info
// survive.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketMappings); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		if _, err := tx.CreateBucket(bucketMappings); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Delete(keyXrefMeta)
	})
}

// NeedsRebuild checks if stored data is stale for the given config.
func (s *BoltStore) NeedsRebuild(cfg *config.Config) (bool, string, error) {
	result, err := s.CheckSchema(ComputeConfigHash(cfg))
	if err != nil {
		return false, "", err
	}
	return result.NeedsRebuild, result.Reason, nil
}

var _ port.BuildStore = (*BoltStore)(nil)
