// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package templating

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikolalohinski/gonja/v2/loaders"
)

// FileLoader is a searchpath-rooted template loader. Unlike Gonja's own
// MemoryLoader or the teacher's SimpleLoader, it resolves names against a
// real directory tree, because import/include targets and the directory
// listing functions (list_files, list_dirs, ...) must see a real searchpath.
//
// FileLoader never falls back to the process's current working directory:
// every name is resolved relative to root, and any name that would resolve
// outside of root is rejected.
type FileLoader struct {
	root string
}

// NewFileLoader creates a FileLoader rooted at root. root is made absolute
// immediately so later path-escape checks are reliable regardless of the
// caller's current working directory.
func NewFileLoader(root string) (*FileLoader, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve searchpath root %q: %w", root, err)
	}
	return &FileLoader{root: abs}, nil
}

// Root returns the loader's absolute searchpath root.
func (l *FileLoader) Root() string {
	return l.root
}

// resolvePath joins name onto root and rejects any result that escapes root.
func (l *FileLoader) resolvePath(name string) (string, error) {
	full := filepath.Join(l.root, name)
	rootWithSep := l.root + string(filepath.Separator)
	if full != l.root && !strings.HasPrefix(full, rootWithSep) {
		return "", fmt.Errorf("path %q escapes searchpath root %q", name, l.root)
	}
	return full, nil
}

// Read returns an io.Reader for the template content at name.
func (l *FileLoader) Read(name string) (io.Reader, error) {
	full, err := l.resolvePath(name)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("template not found: %s: %w", name, err)
	}
	return bytes.NewReader(content), nil
}

// Resolve validates that name exists under root and returns it unchanged.
// Names are always root-relative, so no further resolution is needed.
func (l *FileLoader) Resolve(name string) (string, error) {
	full, err := l.resolvePath(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("template not found: %s: %w", name, err)
	}
	return name, nil
}

// Inherit returns the same loader. Names are already root-relative, so
// relative imports/includes resolve the same way regardless of which
// template is doing the importing.
func (l *FileLoader) Inherit(from string) (loaders.Loader, error) {
	return l, nil
}
