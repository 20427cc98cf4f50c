package templating

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoader_ReadSuccess(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bu"), []byte("content"), 0o644))

	loader, err := NewFileLoader(root)
	require.NoError(t, err)

	r, err := loader.Read("a.bu")
	require.NoError(t, err)

	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))
}

func TestFileLoader_ReadMissing(t *testing.T) {
	loader, err := NewFileLoader(t.TempDir())
	require.NoError(t, err)

	_, err = loader.Read("missing.bu")
	assert.Error(t, err)
}

func TestFileLoader_RejectsPathEscape(t *testing.T) {
	root := t.TempDir()
	loader, err := NewFileLoader(root)
	require.NoError(t, err)

	_, err = loader.Read("../escape.bu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes searchpath root")
}

func TestFileLoader_Resolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bu"), []byte("x"), 0o644))

	loader, err := NewFileLoader(root)
	require.NoError(t, err)

	resolved, err := loader.Resolve("a.bu")
	require.NoError(t, err)
	assert.Equal(t, "a.bu", resolved)

	_, err = loader.Resolve("missing.bu")
	assert.Error(t, err)
}

func TestFileLoader_Inherit(t *testing.T) {
	loader, err := NewFileLoader(t.TempDir())
	require.NoError(t, err)

	inherited, err := loader.Inherit("a.bu")
	require.NoError(t, err)
	assert.Same(t, loader, inherited)
}
