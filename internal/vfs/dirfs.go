package vfs

import (
	"os"
	"path/filepath"

	"github.com/ije/gox/utils"
)

// DirFS serves a project out of a local directory. Paths handed to it are
// cleaned and joined under the root so they can not escape it.
type DirFS struct {
	root string
}

func NewDirFS(root string) (*DirFS, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := ensureDir(root); err != nil {
		return nil, err
	}
	return &DirFS{root: root}, nil
}

func (fs *DirFS) fullPath(name string) string {
	return filepath.Join(fs.root, filepath.FromSlash(utils.CleanPath(name)))
}

func (fs *DirFS) ReadFile(name string) ([]byte, error) {
	fi, err := os.Stat(fs.fullPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, ErrIsDir
	}
	return os.ReadFile(fs.fullPath(name))
}

func (fs *DirFS) WriteFile(name string, content []byte) error {
	fullPath := fs.fullPath(name)
	if err := ensureDir(filepath.Dir(fullPath)); err != nil {
		return err
	}
	return os.WriteFile(fullPath, content, 0644)
}

func (fs *DirFS) Unlink(name string) error {
	err := os.Remove(fs.fullPath(name))
	if err != nil && os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (fs *DirFS) Mkdir(name string) error {
	return os.MkdirAll(fs.fullPath(name), 0755)
}

func (fs *DirFS) ReadDir(name string) ([]DirEntry, error) {
	dirEntries, err := os.ReadDir(fs.fullPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	entries := make([]DirEntry, 0, len(dirEntries))
	for _, entry := range dirEntries {
		entries = append(entries, DirEntry{Name: entry.Name(), IsDir: entry.IsDir()})
	}
	return entries, nil
}

func (fs *DirFS) Access(name string) error {
	fi, err := os.Stat(fs.fullPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	if fi.IsDir() {
		return ErrIsDir
	}
	return nil
}

// Root returns the absolute root directory.
func (fs *DirFS) Root() string {
	return fs.root
}

func ensureDir(dir string) (err error) {
	_, err = os.Stat(dir)
	if err != nil && os.IsNotExist(err) {
		err = os.MkdirAll(dir, 0755)
	}
	return
}
