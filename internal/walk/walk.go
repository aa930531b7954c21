// Package walk is the recursive-directory-lister collaborator named in
// spec §1 (collaborator c). It uses godirwalk over filepath.Walk for
// speed, skips a default set of directories no analysis ever needs to
// enter, and normalizes every path it returns to forward slashes, the
// convention the rest of pomimpact expects from every path it touches.
package walk

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"

	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// DefaultIgnore is the directory/file-name ignore set applied unless the
// caller supplies its own: build output and dependency directories that
// are never part of a Page-Object-Model source tree and are expensive to
// descend into on a large repository.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"vendor",
	"dist",
	"build",
	".next",
	".nuxt",
	"coverage",
	".turbo",
}

// Lister recursively enumerates files under a root, skipping ignored
// directories entirely rather than filtering their contents after the
// fact, so a large ignored subtree (node_modules, dist) costs a single
// directory-entry check instead of a full descent.
type Lister struct {
	root   string
	ignore []string
}

// New creates a Lister rooted at root. A nil/empty ignore list falls back
// to DefaultIgnore.
func New(root string, ignore []string) *Lister {
	if len(ignore) == 0 {
		ignore = DefaultIgnore
	}
	return &Lister{root: root, ignore: ignore}
}

// Walk lists every file and directory under the root, relative paths
// normalized to forward slashes.
func (l *Lister) Walk() ([]types.FileInfo, error) {
	var files []types.FileInfo

	err := godirwalk.Walk(l.root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			relPath, err := filepath.Rel(l.root, path)
			if err != nil {
				return nil
			}
			if relPath == "." {
				return nil
			}
			relPath = filepath.ToSlash(relPath)

			isDir := de.IsDir()
			if l.shouldIgnore(relPath, isDir) {
				if isDir {
					return godirwalk.SkipThis
				}
				return nil
			}

			var size int64
			if !isDir {
				if info, err := os.Stat(path); err == nil {
					size = info.Size()
				}
			}

			files = append(files, types.FileInfo{
				Path:      relPath,
				Name:      de.Name(),
				Extension: strings.ToLower(filepath.Ext(de.Name())),
				Size:      size,
				IsDir:     isDir,
			})
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
		Unsorted:            true,
		AllowNonDirectory:   false,
		FollowSymbolicLinks: false,
	})

	return files, err
}

func (l *Lister) shouldIgnore(relPath string, isDir bool) bool {
	base := filepath.Base(relPath)
	for _, pattern := range l.ignore {
		if strings.ContainsAny(pattern, "*?[") {
			if ok, _ := filepath.Match(pattern, base); ok {
				return true
			}
			continue
		}
		if base == pattern {
			return true
		}
	}
	return false
}

// FilesWithExtensions lists only regular files, normalized relative to
// root, whose extension (lowercased) is one of extensions.
func (l *Lister) FilesWithExtensions(extensions []string) ([]types.FileInfo, error) {
	all, err := l.Walk()
	if err != nil {
		return nil, err
	}
	allow := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		allow[strings.ToLower(e)] = true
	}
	var out []types.FileInfo
	for _, f := range all {
		if f.IsDir {
			continue
		}
		if allow[f.Extension] {
			out = append(out, f)
		}
	}
	return out, nil
}
