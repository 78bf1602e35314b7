package vfs

import (
	"path"
	"path/filepath"
)

// Directory is a directory handle: either a real directory (Archive empty)
// or a directory inside a zip or jar archive.
type Directory struct {
	Path    string
	Archive string
	Entry   string
}

func (d Directory) InArchive() bool {
	return d.Archive != ""
}

// String renders the directory as an identifier ResolveDirectory accepts.
func (d Directory) String() string {
	if d.InArchive() {
		return "jar://" + filepath.ToSlash(d.Archive) + "!/" + d.Entry
	}
	return d.Path
}

// Item is a file or directory reached from a Directory.
type Item struct {
	Directory
	Name  string
	IsDir bool
}

func (i Item) AsDirectory() (Directory, bool) {
	return i.Directory, i.IsDir
}

func (d Directory) child(name string) Directory {
	if d.InArchive() {
		return Directory{Archive: d.Archive, Entry: path.Join(d.Entry, name)}
	}
	return Directory{Path: filepath.Join(d.Path, name)}
}

func (d Directory) parent() (Directory, bool) {
	if d.InArchive() {
		if d.Entry == "" {
			return Directory{}, false
		}
		parent := path.Dir(d.Entry)
		if parent == "." {
			parent = ""
		}
		return Directory{Archive: d.Archive, Entry: parent}, true
	}
	parent := filepath.Dir(d.Path)
	if parent == d.Path {
		return Directory{}, false
	}
	return Directory{Path: parent}, true
}

// DirectoryResolver maps a root identifier (path or URL) to a directory.
// A false result means the root is stale and is not an error.
type DirectoryResolver interface {
	ResolveDirectory(id string) (Directory, bool)
}

// PackageNamer reports the package name a directory corresponds to, or ""
// when the directory is a plain directory.
type PackageNamer interface {
	PackageName(dir Directory) string
}

// ModulePackageNamer is a PackageNamer that knows which module declared each
// source root, so modules sharing a directory keep their own prefixes.
type ModulePackageNamer interface {
	PackageNamer
	PackageNameIn(module string, dir Directory) string
}
