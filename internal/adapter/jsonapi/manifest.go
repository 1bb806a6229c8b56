package jsonapi

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"biblegen/internal/domain"
)

const manifestTimeLayout = "2006-01-02T15:04:05Z"

type ManifestInput struct {
	BuildTime       time.Time
	Versions        []string
	SourceChecksums map[string]string
	Thresholds      *domain.SimilarityThresholds
	Versification   map[string][]string
	CrossRefsSHA256 string
}

// NewManifest assembles the manifest. The build time is rendered in UTC.
func (w *Writer) NewManifest(in ManifestInput) domain.Manifest {
	versions := append([]string(nil), in.Versions...)
	sort.Strings(versions)

	checksums := in.SourceChecksums
	if checksums == nil {
		checksums = map[string]string{}
	}

	sv := w.opts.SchemaVersion
	return domain.Manifest{
		SchemaVersion:     sv,
		BuildTimestamp:    in.BuildTime.UTC().Format(manifestTimeLayout),
		SourceChecksums:   checksums,
		AvailableVersions: versions,
		APIEndpoints: domain.APIEndpoints{
			Versions:  "/" + VersionsFile,
			Books:     "/" + BooksFile,
			CrossRefs: "/" + CrossRefsFile,
			Chapters:  "/{version}/{book}/{chapter}.json",
		},
		SchemaLocations: map[string]string{
			"manifest":  "/schema/manifest-" + sv + ".json",
			"chapter":   "/schema/chapter-" + sv + ".json",
			"crossrefs": "/schema/crossrefs-" + sv + ".json",
		},
		MapperThresholds: in.Thresholds,
		Versification:    in.Versification,
		CrossRefsSHA256:  in.CrossRefsSHA256,
		Extensions:       domain.EmptyExtensions,
	}
}

// WriteManifest writes manifest.json and returns the manifest's SHA-256.
func (w *Writer) WriteManifest(in ManifestInput) (string, error) {
	_, data, err := w.write(ManifestFile, w.NewManifest(in))
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// ReadManifest loads manifest.json from dir.
func ReadManifest(dir string) (*domain.Manifest, error) {
	var m domain.Manifest
	if err := readJSON(filepath.Join(dir, ManifestFile), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// FileChecksum returns the hex SHA-256 of a file's contents.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for checksum: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read %s for checksum: %w", path, err)
	}
	return HashBytes(data), nil
}

// SourceChecksums maps each existing file's base name to its checksum.
func SourceChecksums(paths []string) (map[string]string, error) {
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		sum, err := FileChecksum(p)
		if err != nil {
			return nil, err
		}
		out[filepath.Base(p)] = sum
	}
	return out, nil
}
