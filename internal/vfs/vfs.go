// Package vfs defines the virtual-filesystem interface the dev server reads
// project files through, plus an in-memory and a disk-rooted implementation.
package vfs

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound = errors.New("file not found")
	ErrIsDir    = errors.New("is a directory")
)

// DirEntry is one entry returned by ReadDir.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FS is the storage collaborator contract. All paths are absolute,
// project-relative, and use forward slashes.
type FS interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, content []byte) error
	Unlink(path string) error
	Mkdir(path string) error
	ReadDir(path string) ([]DirEntry, error)
	// Access returns nil if the path exists as a file.
	Access(path string) error
}

// ListFiles walks the filesystem depth-first from dir and returns the
// absolute path of every file found.
func ListFiles(fs FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		p := strings.TrimSuffix(dir, "/") + "/" + entry.Name
		if entry.IsDir {
			sub, err := ListFiles(fs, p)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		} else {
			files = append(files, p)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Snapshot reads every file under dir into a map keyed by absolute path.
// The bundler works against such a snapshot so its resolution plugin can
// stay synchronous.
func Snapshot(fs FS, dir string) (map[string][]byte, error) {
	files, err := ListFiles(fs, dir)
	if err != nil {
		return nil, err
	}
	snapshot := make(map[string][]byte, len(files))
	for _, name := range files {
		data, err := fs.ReadFile(name)
		if err != nil {
			return nil, err
		}
		snapshot[name] = data
	}
	return snapshot, nil
}
