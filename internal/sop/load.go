package sop

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadFile parses a YAML SOP definition from disk.
func LoadFile(path string) (*SOP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SOP file: %w", err)
	}

	var s SOP
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse SOP file %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("SOP file %s: missing name", path)
	}
	return &s, nil
}

// LoadDir loads every .yaml/.yml SOP definition in dir, in lexical order.
// A missing directory is not an error.
func LoadDir(dir string) ([]*SOP, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read SOP dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	sops := make([]*SOP, 0, len(paths))
	for _, path := range paths {
		s, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		sops = append(sops, s)
	}
	return sops, nil
}
