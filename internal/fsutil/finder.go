// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ExperimentExt is the extension of Builder experiment files.
const ExperimentExt = ".psyexp"

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// FindExperiments resolves path to the experiment files it names: the file
// itself, or every experiment below a directory in lexical order.
func FindExperiments(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if filepath.Ext(path) != ExperimentExt {
			return nil, fmt.Errorf("%s is not a %s file", path, ExperimentExt)
		}
		return []string{path}, nil
	}
	files, err := FindFilesByExtension(path, ExperimentExt)
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}
