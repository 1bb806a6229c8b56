package jsonapi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"biblegen/internal/domain"
)

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// ReadCrossRefs loads crossrefs.json from dir.
func ReadCrossRefs(dir string) (*domain.CrossReferenceMap, error) {
	var xref domain.CrossReferenceMap
	if err := readJSON(filepath.Join(dir, CrossRefsFile), &xref); err != nil {
		return nil, err
	}
	return &xref, nil
}

// ReadChapter loads one chapter document.
func ReadChapter(dir, version, book string, chapter uint32) (*domain.ChapterJSON, error) {
	var doc domain.ChapterJSON
	if err := readJSON(filepath.Join(dir, ChapterPath(version, book, chapter)), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
