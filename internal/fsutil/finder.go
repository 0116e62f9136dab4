// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// ErrEmptyExtension is returned when no extension is given to search for.
var ErrEmptyExtension = errors.New("extension must not be empty")

// FindFilesByExtension recursively searches rootPath for files ending with
// extension and returns their paths in lexical order. Hidden directories
// (".git", ".terraform" and the like) are not descended into.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		return nil, ErrEmptyExtension
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != rootPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}
