package vfs

import (
	"sort"
	"strings"
	"sync"
)

// MemFS is a map-backed FS. It is safe for concurrent use.
type MemFS struct {
	lock  sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

func NewMemFS() *MemFS {
	return &MemFS{
		files: map[string][]byte{},
		dirs:  map[string]struct{}{"/": {}},
	}
}

func (fs *MemFS) ReadFile(path string) ([]byte, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	data, ok := fs.files[path]
	if !ok {
		if _, isDir := fs.dirs[path]; isDir {
			return nil, ErrIsDir
		}
		return nil, ErrNotFound
	}
	return data, nil
}

func (fs *MemFS) WriteFile(path string, content []byte) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.files[path] = content
	fs.addParentDirs(path)
	return nil
}

func (fs *MemFS) Unlink(path string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if _, ok := fs.files[path]; !ok {
		return ErrNotFound
	}
	delete(fs.files, path)
	return nil
}

func (fs *MemFS) Mkdir(path string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.dirs[path] = struct{}{}
	fs.addParentDirs(path + "/")
	return nil
}

func (fs *MemFS) ReadDir(path string) ([]DirEntry, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	prefix := strings.TrimSuffix(path, "/") + "/"
	if _, ok := fs.dirs[path]; !ok && path != "/" {
		return nil, ErrNotFound
	}
	names := map[string]bool{}
	for name := range fs.files {
		if strings.HasPrefix(name, prefix) {
			rest := name[len(prefix):]
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				names[rest[:i]] = true
			} else {
				names[rest] = false
			}
		}
	}
	for name := range fs.dirs {
		if strings.HasPrefix(name, prefix) {
			rest := name[len(prefix):]
			if rest == "" {
				continue
			}
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				rest = rest[:i]
			}
			names[rest] = true
		}
	}
	entries := make([]DirEntry, 0, len(names))
	for name, isDir := range names {
		entries = append(entries, DirEntry{Name: name, IsDir: isDir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (fs *MemFS) Access(path string) error {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if _, ok := fs.files[path]; ok {
		return nil
	}
	return ErrNotFound
}

// addParentDirs records every ancestor directory of path. Caller holds the lock.
func (fs *MemFS) addParentDirs(path string) {
	for {
		i := strings.LastIndexByte(path, '/')
		if i <= 0 {
			break
		}
		path = path[:i]
		fs.dirs[path] = struct{}{}
	}
}
