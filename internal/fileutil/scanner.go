// Package fileutil locates specification documents on disk.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// specExtensions are the file extensions treated as spec documents.
var specExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// skipDirs are directory names never descended into while scanning.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".specgate":    true,
}

// IsSpecFile reports whether the filename looks like a spec document.
func IsSpecFile(name string) bool {
	return specExtensions[strings.ToLower(filepath.Ext(name))]
}

// CollectSpecFiles resolves each path to a list of absolute spec file paths.
// Explicit file arguments are taken as-is; directories are walked recursively
// for spec extensions. Duplicates are dropped and the result is sorted.
func CollectSpecFiles(paths []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string

	add := func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		if !seen[abs] {
			seen[abs] = true
			files = append(files, abs)
		}
		return nil
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access path %s: %w", path, err)
		}

		if !info.IsDir() {
			if err := add(path); err != nil {
				return nil, err
			}
			continue
		}

		err = filepath.Walk(path, func(p string, fi os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if fi.IsDir() {
				if skipDirs[fi.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if IsSpecFile(fi.Name()) {
				return add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", path, err)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no spec files (*.md) found")
	}

	sort.Strings(files)
	return files, nil
}
