// Package queries bundles the query suite that ships with tt. The routine
// directory is what tt test --all runs.
package queries

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed routine additional
var bundled embed.FS

// FS returns the bundled query files, rooted at the queries directory.
func FS() fs.FS {
	return bundled
}

// Seed writes the bundled queries into dir if dir does not exist yet. An
// existing directory is left alone, even when it is empty. It reports
// whether anything was written.
func Seed(dir string) (bool, error) {
	if _, err := os.Stat(dir); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking queries directory %s: %w", dir, err)
	}

	err := fs.WalkDir(bundled, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := bundled.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
	if err != nil {
		return false, fmt.Errorf("seeding queries into %s: %w", dir, err)
	}
	return true, nil
}
