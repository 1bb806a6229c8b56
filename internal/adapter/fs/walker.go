package fs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"biblegen/internal/port"
)

// DefaultIncludes matches plain-text translations anywhere below the root.
var DefaultIncludes = []string{"**/*.txt"}

type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Find walks root and returns matching datasets sorted by version. When two
// files share a stem the lexically first path wins.
func (w *Walker) Find(root string) ([]port.Dataset, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string]port.Dataset)
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && w.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !w.shouldInclude(relPath) || w.shouldExclude(relPath) {
			return nil
		}

		ds := DatasetFor(path)
		ds.ModTime = info.ModTime().Unix()
		ds.Size = info.Size()
		if prev, ok := byVersion[ds.Version]; !ok || ds.Path < prev.Path {
			byVersion[ds.Version] = ds
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]port.Dataset, 0, len(byVersion))
	for _, ds := range byVersion {
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// DatasetFor describes an explicitly named file without touching disk.
func DatasetFor(path string) port.Dataset {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return port.Dataset{Path: path, Version: strings.ToLower(stem)}
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
