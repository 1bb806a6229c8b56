package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"biblegen/internal/domain"
)

var (
	bucketMeta     = []byte("meta")
	bucketBuilds   = []byte("builds")
	bucketMappings = []byte("mappings")
	keyXrefMeta    = []byte("crossrefs_meta")
)

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketMeta, bucketBuilds, bucketMappings} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// buildKey sorts builds chronologically under bbolt's byte ordering.
func buildKey(rec domain.BuildRecord) []byte {
	return []byte(fmt.Sprintf("%020d-%s", rec.Timestamp.UnixNano(), rec.ID))
}

func (s *BoltStore) PutBuild(rec domain.BuildRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBuilds).Put(buildKey(rec), data)
	})
}

func (s *BoltStore) LastBuild() (domain.BuildRecord, error) {
	var rec domain.BuildRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		_, v := tx.Bucket(bucketBuilds).Cursor().Last()
		if v == nil {
			return &domain.NotFoundError{Resource: "build", ID: "last"}
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

// ListBuilds returns every recorded build, oldest first.
func (s *BoltStore) ListBuilds() ([]domain.BuildRecord, error) {
	var builds []domain.BuildRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBuilds).ForEach(func(k, v []byte) error {
			var rec domain.BuildRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			builds = append(builds, rec)
			return nil
		})
	})
	return builds, err
}

// crossRefsMeta is everything of a cross-reference map except the
// per-reference entries, which live one key per canonical reference.
type crossRefsMeta struct {
	SchemaVersion string                  `json:"schema_version"`
	Versification map[string][]string     `json:"versification,omitempty"`
	Conflicts     []domain.MappingConflict `json:"conflicts"`
	Metrics       *domain.MappingMetrics  `json:"metrics,omitempty"`
}

// PutCrossRefs replaces the stored snapshot in one transaction.
func (s *BoltStore) PutCrossRefs(xref *domain.CrossReferenceMap) error {
	meta, err := json.Marshal(crossRefsMeta{
		SchemaVersion: xref.SchemaVersion,
		Versification: xref.Versification,
		Conflicts:     xref.Conflicts,
		Metrics:       xref.Metrics,
	})
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketMappings); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketMappings)
		if err != nil {
			return err
		}
		for canonical, entries := range xref.Mappings {
			data, err := json.Marshal(entries)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(canonical), data); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketMeta).Put(keyXrefMeta, meta)
	})
}

func (s *BoltStore) GetMapping(canonical string) (map[string]domain.MappingEntry, error) {
	var entries map[string]domain.MappingEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMappings).Get([]byte(canonical))
		if data == nil {
			return &domain.NotFoundError{Resource: "reference", ID: canonical}
		}
		return json.Unmarshal(data, &entries)
	})
	return entries, err
}

// CrossRefs reassembles the stored snapshot.
func (s *BoltStore) CrossRefs() (*domain.CrossReferenceMap, error) {
	xref := &domain.CrossReferenceMap{Mappings: make(map[string]map[string]domain.MappingEntry)}
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyXrefMeta)
		if data == nil {
			return &domain.NotFoundError{Resource: "cross references", ID: "snapshot"}
		}
		var meta crossRefsMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		xref.SchemaVersion = meta.SchemaVersion
		xref.Versification = meta.Versification
		xref.Conflicts = meta.Conflicts
		xref.Metrics = meta.Metrics

		return tx.Bucket(bucketMappings).ForEach(func(k, v []byte) error {
			var entries map[string]domain.MappingEntry
			if err := json.Unmarshal(v, &entries); err != nil {
				return err
			}
			xref.Mappings[string(k)] = entries
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return xref, nil
}
