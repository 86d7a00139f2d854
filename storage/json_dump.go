package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"idealista-pricing/models"
)

// WriteElementList saves the elementList of a search result as a JSON array.
func WriteElementList(path string, result *models.SearchResult) error {
	if result == nil {
		return fmt.Errorf("dump: write %q: nil search result", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("dump: create output dir: %w", err)
	}

	elements := result.ElementList
	if elements == nil {
		elements = []map[string]any{}
	}
	b, err := json.Marshal(elements)
	if err != nil {
		return fmt.Errorf("dump: encode %q: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("dump: write %q: %w", path, err)
	}
	return nil
}

// ReadElementList loads one dump file.
func ReadElementList(path string) ([]map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dump: read %q: %w", path, err)
	}
	var records []map[string]any
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("dump: decode %q: %w", path, err)
	}
	return records, nil
}

// ReadElementLists loads every *.json dump in dir, ordered by file name.
// A directory without dumps yields no collections and no error.
func ReadElementLists(dir string) ([][]map[string]any, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("dump: glob %q: %w", dir, err)
	}
	sort.Strings(files)

	collections := make([][]map[string]any, 0, len(files))
	for _, f := range files {
		records, err := ReadElementList(f)
		if err != nil {
			return nil, err
		}
		collections = append(collections, records)
	}
	return collections, nil
}
