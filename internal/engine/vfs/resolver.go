package vfs

import (
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	schemeFile = "file://"
	schemeJar  = "jar://"
	schemeZip  = "zip://"
)

// FSResolver resolves directories on the local filesystem and inside
// zip/jar archives.
type FSResolver struct {
	archives *archiveCache
}

func NewFSResolver(archiveCacheSize int) *FSResolver {
	return &FSResolver{archives: newArchiveCache(archiveCacheSize)}
}

// ResolveDirectory accepts plain paths, file:// URLs, archive files
// (.jar/.zip, resolving to the archive root) and archive URLs of the form
// jar://<archive>!/<entry> or zip://<archive>!/<entry>.
func (r *FSResolver) ResolveDirectory(id string) (Directory, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Directory{}, false
	}

	switch {
	case strings.HasPrefix(id, schemeJar), strings.HasPrefix(id, schemeZip):
		archive, entry := splitArchiveURL(id)
		return r.resolveArchive(archive, entry)
	case strings.HasPrefix(id, schemeFile):
		u, err := url.Parse(id)
		if err != nil {
			slog.Debug("malformed file url", "root", id, "error", err)
			return Directory{}, false
		}
		id = filepath.FromSlash(u.Path)
	}

	info, err := os.Stat(id)
	if err != nil {
		return Directory{}, false
	}
	if info.IsDir() {
		return Directory{Path: filepath.Clean(id)}, true
	}
	if isArchiveName(id) {
		return r.resolveArchive(id, "")
	}
	return Directory{}, false
}

func (r *FSResolver) resolveArchive(archive, entry string) (Directory, bool) {
	if archive == "" {
		return Directory{}, false
	}
	idx, ok := r.archives.index(archive)
	if !ok {
		return Directory{}, false
	}
	entry = cleanEntry(entry)
	if !idx.isDir(entry) {
		return Directory{}, false
	}
	return Directory{Archive: filepath.Clean(archive), Entry: entry}, true
}

// Child looks up name directly below dir. "." and ".." are honoured;
// ".." above a root fails.
func (r *FSResolver) Child(dir Directory, name string) (Item, bool) {
	switch name {
	case "", ".":
		return Item{Directory: dir, Name: baseName(dir), IsDir: true}, true
	case "..":
		parent, ok := dir.parent()
		if !ok {
			return Item{}, false
		}
		return Item{Directory: parent, Name: baseName(parent), IsDir: true}, true
	}

	target := dir.child(name)
	if dir.InArchive() {
		idx, ok := r.archives.index(dir.Archive)
		if !ok {
			return Item{}, false
		}
		isDir, exists := idx.lookup(target.Entry)
		if !exists {
			return Item{}, false
		}
		return Item{Directory: target, Name: name, IsDir: isDir}, true
	}

	info, err := os.Stat(target.Path)
	if err != nil {
		return Item{}, false
	}
	return Item{Directory: target, Name: name, IsDir: info.IsDir()}, true
}

// Children lists the entries of dir sorted by name.
func (r *FSResolver) Children(dir Directory) []Item {
	var items []Item
	if dir.InArchive() {
		idx, ok := r.archives.index(dir.Archive)
		if !ok {
			return nil
		}
		for name, isDir := range idx.children(dir.Entry) {
			items = append(items, Item{Directory: dir.child(name), Name: name, IsDir: isDir})
		}
	} else {
		entries, err := os.ReadDir(dir.Path)
		if err != nil {
			return nil
		}
		for _, e := range entries {
			items = append(items, Item{Directory: dir.child(e.Name()), Name: e.Name(), IsDir: e.IsDir()})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

// Close drops every cached archive index.
func (r *FSResolver) Close() {
	r.archives.clear()
}

func splitArchiveURL(id string) (archive, entry string) {
	rest := strings.TrimPrefix(strings.TrimPrefix(id, schemeJar), schemeZip)
	if i := strings.Index(rest, "!"); i >= 0 {
		return filepath.FromSlash(rest[:i]), rest[i+1:]
	}
	return filepath.FromSlash(rest), ""
}

func cleanEntry(entry string) string {
	entry = strings.Trim(filepath.ToSlash(entry), "/")
	if entry == "." {
		return ""
	}
	return entry
}

func isArchiveName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jar", ".zip":
		return true
	}
	return false
}

func baseName(dir Directory) string {
	if dir.InArchive() {
		if dir.Entry == "" {
			return filepath.Base(dir.Archive)
		}
		return dir.Entry[strings.LastIndex(dir.Entry, "/")+1:]
	}
	return filepath.Base(dir.Path)
}
