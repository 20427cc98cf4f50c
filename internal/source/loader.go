// Package source implements the Source Loader (C2): enumeration of
// structured fragments and reconciler fragments under a library/project
// root pair, and on-demand resolution of `local:` references to bytes plus
// a text/binary classification.
package source

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"
)

// Loader enumerates and resolves fragments under a pair of source roots.
// A Loader is stateless beyond its roots: every call reads the filesystem
// fresh, matching the Transpiler's no-cache, read-once-per-call design.
type Loader struct {
	roots Roots
}

// NewLoader creates a Loader over the given library and project roots.
func NewLoader(roots Roots) *Loader {
	return &Loader{roots: roots}
}

// ListLibraryTemplates returns the sorted list of *.bu fragments under the
// library root, relative to that root.
func (l *Loader) ListLibraryTemplates() ([]string, error) {
	return listMatching(l.roots.Library, ".bu")
}

// ListProjectTemplates returns the sorted list of *.bu fragments under the
// project root, relative to that root.
func (l *Loader) ListProjectTemplates() ([]string, error) {
	return listMatching(l.roots.Project, ".bu")
}

// ListReconcilerFragments returns the sorted list of *.sls reconciler
// fragments under the project root, relative to that root.
func (l *Loader) ListReconcilerFragments() ([]string, error) {
	return listMatching(l.roots.Project, ".sls")
}

// ResolveLocal resolves a `local:` reference's path, trying the project
// root first and falling back to the library root. Two roots containing
// the same relative asset is not an error: the project root wins.
func (l *Loader) ResolveLocal(relPath string) (*Asset, error) {
	if l.roots.Project != "" {
		if asset, ok, err := tryResolve(l.roots.Project, "project", relPath); err != nil {
			return nil, err
		} else if ok {
			return asset, nil
		}
	}
	if l.roots.Library != "" {
		if asset, ok, err := tryResolve(l.roots.Library, "library", relPath); err != nil {
			return nil, err
		} else if ok {
			return asset, nil
		}
	}
	return nil, NewMissingLocalReference("local:" + relPath)
}

// ResolveLocalDir enumerates the sorted, relDir-relative paths of every
// regular file under a `local:` directory reference, trying the project
// root first and falling back to the library root — the same precedence
// ResolveLocal uses. Used by the Merger to expand storage.trees entries.
func (l *Loader) ResolveLocalDir(relDir string) ([]string, error) {
	if l.roots.Project != "" {
		if files, ok, err := tryResolveDir(l.roots.Project, relDir); err != nil {
			return nil, err
		} else if ok {
			return files, nil
		}
	}
	if l.roots.Library != "" {
		if files, ok, err := tryResolveDir(l.roots.Library, relDir); err != nil {
			return nil, err
		} else if ok {
			return files, nil
		}
	}
	return nil, NewMissingLocalReference("local:" + relDir)
}

// tryResolveDir walks root/relDir and returns the sorted, relDir-relative
// paths of its regular files, or ok=false when relDir does not exist
// under root at all.
func tryResolveDir(root, relDir string) ([]string, bool, error) {
	full := filepath.Join(root, relDir)
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !info.IsDir() {
		return nil, false, nil
	}

	var files []string
	err = filepath.WalkDir(full, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(full, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	sort.Strings(files)
	return files, true, nil
}

// tryResolve attempts to read relPath under root, returning ok=false (no
// error) when the file simply does not exist under this root, so the
// caller can fall through to the next root in precedence order.
func tryResolve(root, rootLabel, relPath string) (*Asset, bool, error) {
	full := filepath.Join(root, relPath)
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &Asset{
		Path: relPath,
		Root: rootLabel,
		Data: data,
		Text: isText(data),
	}, true, nil
}

// isText classifies content as text when it is valid UTF-8 and content
// sniffing does not report an octet-stream/binary MIME type.
func isText(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	sniffed := http.DetectContentType(data)
	return sniffed != "application/octet-stream"
}

// listMatching walks root and returns the sorted, root-relative paths of
// every regular file whose name ends in ext. A missing root yields an
// empty list rather than an error: an unused library or project root is
// valid.
func listMatching(root, ext string) ([]string, error) {
	if root == "" {
		return nil, nil
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var matches []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ext {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		matches = append(matches, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}
