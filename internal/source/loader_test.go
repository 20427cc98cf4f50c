package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, data, 0o644))
}

func TestListLibraryTemplates_SortedAndFiltered(t *testing.T) {
	library := t.TempDir()
	writeFile(t, library, "b.bu", []byte("b: 1"))
	writeFile(t, library, "a.bu", []byte("a: 1"))
	writeFile(t, library, "nested/c.bu", []byte("c: 1"))
	writeFile(t, library, "notes.txt", []byte("ignored"))

	loader := NewLoader(Roots{Library: library})
	names, err := loader.ListLibraryTemplates()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.bu", "b.bu", "nested/c.bu"}, names)
}

func TestListReconcilerFragments_ProjectOnly(t *testing.T) {
	project := t.TempDir()
	writeFile(t, project, "service.sls", []byte("x: 1"))
	writeFile(t, project, "base.bu", []byte("y: 1"))

	loader := NewLoader(Roots{Project: project})
	names, err := loader.ListReconcilerFragments()
	require.NoError(t, err)
	assert.Equal(t, []string{"service.sls"}, names)
}

func TestListMatching_MissingRootIsEmpty(t *testing.T) {
	loader := NewLoader(Roots{Library: filepath.Join(t.TempDir(), "does-not-exist")})
	names, err := loader.ListLibraryTemplates()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestResolveLocal_ProjectWinsOverLibrary(t *testing.T) {
	library := t.TempDir()
	project := t.TempDir()
	writeFile(t, library, "shared.conf", []byte("from-library"))
	writeFile(t, project, "shared.conf", []byte("from-project"))

	loader := NewLoader(Roots{Library: library, Project: project})
	asset, err := loader.ResolveLocal("shared.conf")
	require.NoError(t, err)
	assert.Equal(t, "from-project", string(asset.Data))
	assert.Equal(t, "project", asset.Root)
}

func TestResolveLocal_FallsBackToLibrary(t *testing.T) {
	library := t.TempDir()
	project := t.TempDir()
	writeFile(t, library, "only-in-library.conf", []byte("lib content"))

	loader := NewLoader(Roots{Library: library, Project: project})
	asset, err := loader.ResolveLocal("only-in-library.conf")
	require.NoError(t, err)
	assert.Equal(t, "lib content", string(asset.Data))
	assert.Equal(t, "library", asset.Root)
}

func TestResolveLocal_MissingIsFatal(t *testing.T) {
	loader := NewLoader(Roots{Library: t.TempDir(), Project: t.TempDir()})
	_, err := loader.ResolveLocal("nope.conf")
	require.Error(t, err)

	var missing *MissingLocalReference
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "local:nope.conf", missing.Reference)
}

func TestResolveLocal_ClassifiesBinaryContent(t *testing.T) {
	project := t.TempDir()
	writeFile(t, project, "blob.bin", []byte{0x00, 0xff, 0x42})

	loader := NewLoader(Roots{Project: project})
	asset, err := loader.ResolveLocal("blob.bin")
	require.NoError(t, err)
	assert.False(t, asset.Text)
}

func TestResolveLocal_ClassifiesTextContent(t *testing.T) {
	project := t.TempDir()
	writeFile(t, project, "note.txt", []byte("hello world"))

	loader := NewLoader(Roots{Project: project})
	asset, err := loader.ResolveLocal("note.txt")
	require.NoError(t, err)
	assert.True(t, asset.Text)
}
