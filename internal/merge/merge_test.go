package merge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"butane-transpile/internal/document"
	"butane-transpile/internal/source"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func docWithFile(path, inline string) document.Document {
	return document.Document{
		Storage: document.Storage{
			Files: []any{
				map[string]interface{}{
					"path":     path,
					"contents": map[string]interface{}{"inline": inline},
				},
			},
		},
	}
}

func TestFoldPair_HigherFileReplacesLowerBySamePath(t *testing.T) {
	lower := docWithFile("/etc/motd", "lower")
	higher := docWithFile("/etc/motd", "higher")

	result := foldPair(lower, higher)

	require.Len(t, result.Storage.Files, 1)
	contents := asMap(asMap(result.Storage.Files[0])["contents"])
	assert.Equal(t, "higher", contents["inline"])
}

func TestFoldPair_DistinctPathsBothSurvive(t *testing.T) {
	lower := docWithFile("/etc/a", "a")
	higher := docWithFile("/etc/b", "b")

	result := foldPair(lower, higher)

	assert.Len(t, result.Storage.Files, 2)
}

func TestFoldPair_PasswdUsersAreWholesaleReplaced(t *testing.T) {
	lower := document.Document{Passwd: document.Passwd{
		Users: []any{map[string]interface{}{"name": "core"}, map[string]interface{}{"name": "admin"}},
	}}
	higher := document.Document{Passwd: document.Passwd{
		Users: []any{map[string]interface{}{"name": "core"}},
	}}

	result := foldPair(lower, higher)

	require.Len(t, result.Passwd.Users, 1)
	assert.Equal(t, "core", asMap(result.Passwd.Users[0])["name"])
}

func TestMergeUnits_DropinsSurviveUnitOverrideFromLowerTier(t *testing.T) {
	lower := []any{
		map[string]interface{}{
			"name": "app.service",
			"dropins": []interface{}{
				map[string]interface{}{"name": "10-base.conf", "contents": "base"},
			},
		},
	}
	higher := []any{
		map[string]interface{}{
			"name":    "app.service",
			"enabled": true,
		},
	}

	result := mergeUnits(lower, higher)

	require.Len(t, result, 1)
	unit := asMap(result[0])
	assert.Equal(t, true, unit["enabled"])
	dropins, ok := unit["dropins"].([]any)
	require.True(t, ok)
	require.Len(t, dropins, 1)
	assert.Equal(t, "10-base.conf", asMap(dropins[0])["name"])
}

func TestCheckNoInternalDuplicates_DetectsDuplicateFilePath(t *testing.T) {
	doc := document.Document{
		Storage: document.Storage{
			Files: []any{
				map[string]interface{}{"path": "/etc/x"},
				map[string]interface{}{"path": "/etc/x"},
			},
		},
	}

	err := checkNoInternalDuplicates(doc)

	require.Error(t, err)
	var conflict *MergeConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "file", conflict.Kind)
	assert.Equal(t, "/etc/x", conflict.Identity)
}

func TestExpandTrees_ProducesSortedFileEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "files/b.txt", "b")
	writeFile(t, root, "files/a.txt", "a")
	writeFile(t, root, "files/sub/c.txt", "c")

	loader := source.NewLoader(source.Roots{Project: root})
	doc := document.Document{
		Storage: document.Storage{
			Trees: []any{
				map[string]interface{}{"path": "/srv", "local": "files"},
			},
		},
	}

	require.NoError(t, expandTrees(&doc, loader))

	require.Empty(t, doc.Storage.Trees)
	require.Len(t, doc.Storage.Files, 3)

	paths := []string{}
	for _, f := range doc.Storage.Files {
		paths = append(paths, asMap(f)["path"].(string))
	}
	assert.Equal(t, []string{"/srv/a.txt", "/srv/b.txt", "/srv/sub/c.txt"}, paths)
}

func TestExpandTrees_ExpandedFileWinsOverExistingEntryAtSamePath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "files/a.txt", "from-tree")

	loader := source.NewLoader(source.Roots{Project: root})
	doc := document.Document{
		Storage: document.Storage{
			Files: []any{
				map[string]interface{}{"path": "/srv/a.txt", "contents": map[string]interface{}{"inline": "stale"}},
			},
			Trees: []any{
				map[string]interface{}{"path": "/srv", "local": "files"},
			},
		},
	}

	require.NoError(t, expandTrees(&doc, loader))

	require.Len(t, doc.Storage.Files, 1)
	file := asMap(doc.Storage.Files[0])
	assert.Equal(t, "/srv/a.txt", file["path"])
	contents := asMap(file["contents"])
	assert.Equal(t, "files/a.txt", contents["local"])
}

func TestInlineLocalReferences_TextFileBecomesInline(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "motd.txt", "welcome")

	loader := source.NewLoader(source.Roots{Project: root})
	doc := document.Document{
		Storage: document.Storage{
			Files: []any{
				map[string]interface{}{
					"path":     "/etc/motd",
					"contents": map[string]interface{}{"local": "motd.txt"},
				},
			},
		},
	}

	require.NoError(t, inlineLocalReferences(&doc, loader))

	contents := asMap(asMap(doc.Storage.Files[0])["contents"])
	assert.Equal(t, "welcome", contents["inline"])
	_, hasLocal := contents["local"]
	assert.False(t, hasLocal)
}

func TestInlineLocalReferences_BinaryFileBecomesDataURI(t *testing.T) {
	root := t.TempDir()
	binary := []byte{0x00, 0x01, 0x02, 0xff, 0xfe}
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), binary, 0o644))

	loader := source.NewLoader(source.Roots{Project: root})
	doc := document.Document{
		Storage: document.Storage{
			Files: []any{
				map[string]interface{}{
					"path":     "/etc/blob",
					"contents": map[string]interface{}{"local": "blob.bin"},
				},
			},
		},
	}

	require.NoError(t, inlineLocalReferences(&doc, loader))

	contents := asMap(asMap(doc.Storage.Files[0])["contents"])
	source, ok := contents["source"].(string)
	require.True(t, ok)
	assert.Contains(t, source, "data:;base64,")
}

func TestInlineLocalReferences_BinaryUnitContentsIsEncodingError(t *testing.T) {
	root := t.TempDir()
	binary := []byte{0x00, 0x01, 0x02, 0xff, 0xfe}
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), binary, 0o644))

	loader := source.NewLoader(source.Roots{Project: root})
	doc := document.Document{
		Systemd: document.Systemd{
			Units: []any{
				map[string]interface{}{"name": "app.service", "contents_local": "blob.bin"},
			},
		},
	}

	err := inlineLocalReferences(&doc, loader)

	require.Error(t, err)
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "app.service", encErr.Path)
}

func TestInlineLocalReferences_MissingReferenceIsFatal(t *testing.T) {
	loader := source.NewLoader(source.Roots{Project: t.TempDir()})
	doc := document.Document{
		Storage: document.Storage{
			Files: []any{
				map[string]interface{}{
					"path":     "/etc/missing",
					"contents": map[string]interface{}{"local": "nope.txt"},
				},
			},
		},
	}

	err := inlineLocalReferences(&doc, loader)

	require.Error(t, err)
}

func TestApplySecondaryTemplatePass_RecognizesBothMarkerSpellings(t *testing.T) {
	projectRoot := t.TempDir()

	doc := document.Document{
		Storage: document.Storage{
			Files: []any{
				map[string]interface{}{
					"path": "/etc/a",
					"contents": map[string]interface{}{
						"inline":   "region={{ environment.region }}",
						"template": "jinja",
					},
				},
				map[string]interface{}{
					"path": "/etc/b",
					"contents": map[string]interface{}{
						"inline":   "region={{ environment.region }}",
						"template": "template=jinja",
					},
				},
			},
		},
	}

	warnings, err := applySecondaryTemplatePass(&doc, projectRoot, map[string]any{"region": "us-east"})

	require.NoError(t, err)
	assert.Empty(t, warnings)

	for _, f := range doc.Storage.Files {
		contents := asMap(asMap(f)["contents"])
		assert.Equal(t, "region=us-east", contents["inline"])
		_, hasMarker := contents["template"]
		assert.False(t, hasMarker)
	}
}

func TestApplySecondaryTemplatePass_UnrecognizedMarkerWarnsAndLeavesContentAlone(t *testing.T) {
	projectRoot := t.TempDir()

	doc := document.Document{
		Storage: document.Storage{
			Files: []any{
				map[string]interface{}{
					"path": "/etc/c",
					"contents": map[string]interface{}{
						"inline":   "raw {{ not_rendered }}",
						"template": "mustache",
					},
				},
			},
		},
	}

	warnings, err := applySecondaryTemplatePass(&doc, projectRoot, nil)

	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "/etc/c", warnings[0].Path)

	contents := asMap(asMap(doc.Storage.Files[0])["contents"])
	assert.Equal(t, "raw {{ not_rendered }}", contents["inline"])
}

func TestCheckOwnershipAmbiguity_WarnsOnBothIDAndName(t *testing.T) {
	doc := document.Document{
		Storage: document.Storage{
			Files: []any{
				map[string]interface{}{
					"path": "/etc/x",
					"user": map[string]interface{}{"id": 1000, "name": "core"},
				},
			},
		},
	}

	warnings := checkOwnershipAmbiguity(doc)

	require.Len(t, warnings, 1)
	assert.Equal(t, "/etc/x", warnings[0].Path)
}

func TestMerge_FullPipelineFoldsExpandsInlinesAndRendersSecondaryPass(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tree/one.txt", "one")
	writeFile(t, root, "motd.txt", "hello {{ environment.name }}")

	loader := source.NewLoader(source.Roots{Project: root})

	lower := document.Document{
		Storage: document.Storage{
			Directories: []any{map[string]interface{}{"path": "/srv"}},
			Trees:       []any{map[string]interface{}{"path": "/srv/tree", "local": "tree"}},
		},
	}
	higher := docWithFile("/etc/motd", "placeholder")
	asMap(higher.Storage.Files[0])["contents"].(map[string]interface{})["local"] = "motd.txt"
	delete(asMap(higher.Storage.Files[0])["contents"].(map[string]interface{}), "inline")
	asMap(higher.Storage.Files[0])["contents"].(map[string]interface{})["template"] = "jinja"

	merged, warnings, err := Merge([]document.Document{lower, higher}, loader, root, map[string]any{"name": "host1"})

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Len(t, merged.Storage.Directories, 1)
	assert.Empty(t, merged.Storage.Trees)

	var treeFile, motdFile map[string]interface{}
	for _, f := range merged.Storage.Files {
		m := asMap(f)
		switch m["path"] {
		case "/srv/tree/one.txt":
			treeFile = m
		case "/etc/motd":
			motdFile = m
		}
	}
	require.NotNil(t, treeFile)
	require.NotNil(t, motdFile)
	assert.Equal(t, "one", asMap(treeFile["contents"])["inline"])
	assert.Equal(t, "hello host1", asMap(motdFile["contents"])["inline"])
}
