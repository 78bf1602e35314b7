package vfs

import (
	"archive/zip"
	"fmt"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"

	"pathref/internal/shared/util"
)

// archiveIndex is the directory tree of one archive. Directories that only
// appear implicitly (as parents of file entries) are included.
type archiveIndex struct {
	dirs map[string]map[string]bool // dir entry -> child name -> isDir
}

func (a *archiveIndex) isDir(entry string) bool {
	_, ok := a.dirs[entry]
	return ok
}

func (a *archiveIndex) lookup(entry string) (isDir, exists bool) {
	parent := path.Dir(entry)
	if parent == "." {
		parent = ""
	}
	children, ok := a.dirs[parent]
	if !ok {
		return false, false
	}
	isDir, exists = children[path.Base(entry)]
	return isDir, exists
}

func (a *archiveIndex) children(entry string) map[string]bool {
	return a.dirs[entry]
}

func (a *archiveIndex) addDir(entry string) {
	if _, ok := a.dirs[entry]; ok {
		return
	}
	a.dirs[entry] = make(map[string]bool)
	if entry == "" {
		return
	}
	parent := path.Dir(entry)
	if parent == "." {
		parent = ""
	}
	a.addDir(parent)
	a.dirs[parent][path.Base(entry)] = true
}

func buildArchiveIndex(archive string) (*archiveIndex, error) {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	idx := &archiveIndex{dirs: make(map[string]map[string]bool)}
	idx.addDir("")
	for _, f := range reader.File {
		name := strings.Trim(f.Name, "/")
		if name == "" || slices.Contains(strings.Split(name, "/"), "..") {
			continue
		}
		if f.FileInfo().IsDir() {
			idx.addDir(name)
			continue
		}
		parent := path.Dir(name)
		if parent == "." {
			parent = ""
		}
		idx.addDir(parent)
		if _, isDir := idx.dirs[name]; !isDir {
			idx.dirs[parent][path.Base(name)] = false
		}
	}
	return idx, nil
}

// archiveCache keys indexes by archive path, size and mtime so a rewritten
// archive is re-read.
type archiveCache struct {
	cache *util.LRUCache[string, *archiveIndex]
}

func newArchiveCache(capacity int) *archiveCache {
	c := &archiveCache{cache: util.NewLRUCache[string, *archiveIndex](capacity)}
	c.cache.OnEvict(func(key string, _ *archiveIndex) {
		slog.Debug("archive index evicted", "key", key)
	})
	return c
}

func (c *archiveCache) index(archive string) (*archiveIndex, bool) {
	info, err := os.Stat(archive)
	if err != nil || info.IsDir() {
		return nil, false
	}
	key := fmt.Sprintf("%s|%d|%d", archive, info.Size(), info.ModTime().UnixNano())
	if idx, ok := c.cache.Get(key); ok {
		return idx, true
	}

	idx, err := buildArchiveIndex(archive)
	if err != nil {
		slog.Debug("unreadable archive", "path", archive, "error", err)
		return nil, false
	}
	c.cache.Put(key, idx)
	return idx, true
}

func (c *archiveCache) clear() {
	c.cache.Clear()
}
