package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"butane-transpile/internal/document"
	"butane-transpile/internal/source"
)

func TestEmit_RendersManagedFileAndAccumulator(t *testing.T) {
	root := t.TempDir()
	loader := source.NewLoader(source.Roots{Project: root})

	doc := document.Document{
		Storage: document.Storage{
			Files: []any{
				map[string]interface{}{
					"path":     "/etc/containers/systemd/frontend.container",
					"contents": map[string]interface{}{"inline": "body"},
				},
			},
		},
	}

	out, err := Emit(context.Background(), doc, loader, root, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "managed file /etc/containers/systemd/frontend.container")
	assert.Contains(t, out, "service_changed.list")
	assert.Contains(t, out, "frontend")
}

func TestEmit_AppendsProjectFragmentsSorted(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.sls"), []byte("b-body\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.sls"), []byte("a-body\n"), 0o644))
	loader := source.NewLoader(source.Roots{Project: root})

	out, err := Emit(context.Background(), document.Document{}, loader, root, nil)
	require.NoError(t, err)

	aIdx := indexOf(out, "a-body")
	bIdx := indexOf(out, "b-body")
	require.GreaterOrEqual(t, aIdx, 0)
	require.GreaterOrEqual(t, bIdx, 0)
	assert.Less(t, aIdx, bIdx)
}

func TestEmit_ContextCancellationStopsBeforeRendering(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := source.NewLoader(source.Roots{Project: t.TempDir()})
	_, err := Emit(ctx, document.Document{}, loader, t.TempDir(), nil)
	require.Error(t, err)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
