package merge

import (
	"encoding/base64"
	"fmt"
	"path/filepath"

	"butane-transpile/internal/document"
	"butane-transpile/internal/source"
	"butane-transpile/internal/templating"
)

// Merge folds docs (low to high precedence) into a single Document, then
// expands storage.trees entries, inlines every `local:` reference, and
// applies the secondary `template: jinja` pass. projectRoot is the
// searchpath the secondary pass renders against, per spec.md §4.4.
func Merge(docs []document.Document, loader *source.Loader, projectRoot string, environment map[string]any) (document.Document, []Warning, error) {
	for _, doc := range docs {
		if err := checkNoInternalDuplicates(doc); err != nil {
			return document.Document{}, nil, err
		}
	}

	merged := document.Document{Extra: map[string]any{}}
	for _, doc := range docs {
		merged = foldPair(merged, doc)
	}

	var warnings []Warning

	if err := expandTrees(&merged, loader); err != nil {
		return document.Document{}, nil, err
	}

	if err := inlineLocalReferences(&merged, loader); err != nil {
		return document.Document{}, nil, err
	}

	secondaryWarnings, err := applySecondaryTemplatePass(&merged, projectRoot, environment)
	if err != nil {
		return document.Document{}, nil, err
	}
	warnings = append(warnings, secondaryWarnings...)
	warnings = append(warnings, checkOwnershipAmbiguity(merged)...)

	return merged, warnings, nil
}

// foldPair merges higher on top of lower: identity-keyed sequences merge
// by path/name, Extra merges recursively by key, and the passwd sequences
// are replaced wholesale. Each field's merge function is called directly,
// matching the strategy recorded for it in strategyTable.
func foldPair(lower, higher document.Document) document.Document {
	result := document.Document{Extra: map[string]any{}}

	result.Storage.Directories = mergeIdentity("path", lower.Storage.Directories, higher.Storage.Directories)
	result.Storage.Links = mergeIdentity("path", lower.Storage.Links, higher.Storage.Links)
	result.Storage.Files = mergeIdentity("path", lower.Storage.Files, higher.Storage.Files)
	result.Storage.Trees = mergeIdentity("path", lower.Storage.Trees, higher.Storage.Trees)
	result.Systemd.Units = mergeUnits(lower.Systemd.Units, higher.Systemd.Units)
	result.Passwd.Users = mergeWholesale(lower.Passwd.Users, higher.Passwd.Users)
	result.Passwd.Groups = mergeWholesale(lower.Passwd.Groups, higher.Passwd.Groups)
	result.Extra = mergeMapsRecursive(lower.Extra, higher.Extra)

	return result
}

func mergeWholesale(lower, higher []any) []any {
	if len(higher) > 0 {
		return higher
	}
	return lower
}

func mergeMapsRecursive(lower, higher map[string]any) map[string]any {
	result := make(map[string]any, len(lower)+len(higher))
	for k, v := range lower {
		result[k] = v
	}
	for k, v := range higher {
		if lowerVal, ok := result[k]; ok {
			if lowerMap, ok := lowerVal.(map[string]interface{}); ok {
				if higherMap, ok := v.(map[string]interface{}); ok {
					result[k] = mergeMapsRecursive(lowerMap, higherMap)
					continue
				}
			}
		}
		result[k] = v
	}
	return result
}

// mergeIdentity merges two entity lists by the value of key, preserving
// lower's order and appending higher-only entries at the end. A
// higher-precedence entity with a matching identity replaces the
// lower-precedence one in full.
func mergeIdentity(key string, lower, higher []any) []any {
	result := make([]any, len(lower))
	copy(result, lower)

	index := make(map[string]int, len(lower))
	for i, entry := range lower {
		if id, ok := identityOf(entry, key); ok {
			index[id] = i
		}
	}

	for _, entry := range higher {
		id, ok := identityOf(entry, key)
		if !ok {
			result = append(result, entry)
			continue
		}
		if i, exists := index[id]; exists {
			result[i] = entry
			continue
		}
		index[id] = len(result)
		result = append(result, entry)
	}
	return result
}

// mergeUnits merges unit entries by name. A higher-precedence unit's
// top-level fields replace the lower-precedence one's in full, but the
// dropins list is itself identity-merged by dropin name, so dropins
// contributed at a lower tier survive a higher tier's unit override.
func mergeUnits(lower, higher []any) []any {
	result := make([]any, len(lower))
	copy(result, lower)

	index := make(map[string]int, len(lower))
	for i, entry := range lower {
		if id, ok := identityOf(entry, "name"); ok {
			index[id] = i
		}
	}

	for _, entry := range higher {
		id, ok := identityOf(entry, "name")
		if !ok {
			result = append(result, entry)
			continue
		}
		if i, exists := index[id]; exists {
			result[i] = mergeUnit(asMap(result[i]), asMap(entry))
			continue
		}
		index[id] = len(result)
		result = append(result, entry)
	}
	return result
}

func mergeUnit(lower, higher map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(higher)+1)
	for k, v := range higher {
		if k == "dropins" {
			continue
		}
		merged[k] = v
	}

	lowerDropins, _ := lower["dropins"].([]interface{})
	higherDropins, _ := higher["dropins"].([]interface{})
	merged["dropins"] = mergeIdentity("name", lowerDropins, higherDropins)
	return merged
}

func identityOf(entry any, key string) (string, bool) {
	m, ok := entry.(map[string]interface{})
	if !ok {
		return "", false
	}
	id, ok := m[key].(string)
	return id, ok
}

func asMap(entry any) map[string]interface{} {
	if m, ok := entry.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// checkNoInternalDuplicates raises MergeConflict when a single document
// already contains two entities of the same kind claiming the same
// identity, which would make precedence resolution ambiguous within one
// precedence tier.
func checkNoInternalDuplicates(doc document.Document) error {
	if err := checkUnique("directory", "path", doc.Storage.Directories); err != nil {
		return err
	}
	if err := checkUnique("link", "path", doc.Storage.Links); err != nil {
		return err
	}
	if err := checkUnique("file", "path", doc.Storage.Files); err != nil {
		return err
	}
	if err := checkUnique("tree", "path", doc.Storage.Trees); err != nil {
		return err
	}
	if err := checkUnique("unit", "name", doc.Systemd.Units); err != nil {
		return err
	}
	for _, u := range doc.Systemd.Units {
		unit := asMap(u)
		dropins, _ := unit["dropins"].([]interface{})
		if err := checkUnique("dropin", "name", dropins); err != nil {
			return err
		}
	}
	return nil
}

func checkUnique(kind, key string, entries []any) error {
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		id, ok := identityOf(entry, key)
		if !ok {
			continue
		}
		if seen[id] {
			return NewMergeConflict(kind, id)
		}
		seen[id] = true
	}
	return nil
}

// expandTrees replaces each storage.trees entry with one File entry per
// file enumerated under its local directory, sorted, per invariant I4.
// Expanded files are identity-merged into Storage.Files, so a tree's
// output wins over a pre-existing File entry of the same path.
func expandTrees(doc *document.Document, loader *source.Loader) error {
	if len(doc.Storage.Trees) == 0 {
		return nil
	}

	var expanded []any
	for _, t := range doc.Storage.Trees {
		tree := asMap(t)
		treePath, _ := tree["path"].(string)
		localDir, _ := tree["local"].(string)

		files, err := loader.ResolveLocalDir(localDir)
		if err != nil {
			return err
		}
		for _, rel := range files {
			expanded = append(expanded, map[string]interface{}{
				"path": filepath.ToSlash(filepath.Join(treePath, rel)),
				"contents": map[string]interface{}{
					"local": filepath.ToSlash(filepath.Join(localDir, rel)),
				},
			})
		}
	}

	doc.Storage.Files = mergeIdentity("path", doc.Storage.Files, expanded)
	doc.Storage.Trees = nil
	return nil
}

// inlineLocalReferences resolves every contents.local (File) and
// contents_local (Unit/Dropin) field into inline text, a base64 data: URI,
// or plain text contents, respectively. Per invariant I2, no local field
// survives this pass.
func inlineLocalReferences(doc *document.Document, loader *source.Loader) error {
	for i, f := range doc.Storage.Files {
		file := asMap(f)
		contents := asMap(file["contents"])
		local, ok := contents["local"].(string)
		if !ok {
			continue
		}
		asset, err := loader.ResolveLocal(local)
		if err != nil {
			return err
		}
		delete(contents, "local")
		if asset.Text {
			contents["inline"] = string(asset.Data)
		} else {
			contents["source"] = dataURI(asset.Data)
		}
		file["contents"] = contents
		doc.Storage.Files[i] = file
	}

	for i, u := range doc.Systemd.Units {
		unit := asMap(u)
		if err := inlineContentsLocal(unit, loader); err != nil {
			return err
		}
		dropins, _ := unit["dropins"].([]interface{})
		for j, d := range dropins {
			dropin := asMap(d)
			if err := inlineContentsLocal(dropin, loader); err != nil {
				return err
			}
			dropins[j] = dropin
		}
		if dropins != nil {
			unit["dropins"] = dropins
		}
		doc.Systemd.Units[i] = unit
	}
	return nil
}

func inlineContentsLocal(entity map[string]interface{}, loader *source.Loader) error {
	local, ok := entity["contents_local"].(string)
	if !ok {
		return nil
	}
	asset, err := loader.ResolveLocal(local)
	if err != nil {
		return err
	}
	if !asset.Text {
		name, _ := entity["name"].(string)
		return NewEncodingError(name)
	}
	delete(entity, "contents_local")
	entity["contents"] = string(asset.Data)
	return nil
}

func dataURI(data []byte) string {
	return fmt.Sprintf("data:;base64,%s", base64.StdEncoding.EncodeToString(data))
}

// applySecondaryTemplatePass re-renders any File/Unit/Dropin contents
// string carrying a recognized template marker through the Template
// Engine, using projectRoot as the searchpath. Both `template: jinja` and
// the corpus's `template=jinja` spelling are treated as synonyms; any
// other marker value is recorded as a warning and left unrendered.
func applySecondaryTemplatePass(doc *document.Document, projectRoot string, environment map[string]any) ([]Warning, error) {
	var warnings []Warning
	ctx := map[string]interface{}{"environment": environment}
	for k, v := range environment {
		ctx[k] = v
	}

	for i, f := range doc.Storage.Files {
		file := asMap(f)
		contents := asMap(file["contents"])
		marker, has := contents["template"]
		if !has {
			continue
		}
		recognized, warn := normalizeTemplateMarker(marker)
		if warn != "" {
			path, _ := file["path"].(string)
			warnings = append(warnings, Warning{Path: path, Message: warn})
		}
		delete(contents, "template")
		if recognized {
			inline, _ := contents["inline"].(string)
			rendered, err := templating.RenderOnce(projectRoot, "secondary.tmp", inline, nil, nil, ctx)
			if err != nil {
				return nil, err
			}
			contents["inline"] = rendered
		}
		file["contents"] = contents
		doc.Storage.Files[i] = file
	}

	for i, u := range doc.Systemd.Units {
		unit := asMap(u)
		if err := applySecondaryToUnitLike(unit, "name", projectRoot, ctx, &warnings); err != nil {
			return nil, err
		}
		dropins, _ := unit["dropins"].([]interface{})
		for j, d := range dropins {
			dropin := asMap(d)
			if err := applySecondaryToUnitLike(dropin, "name", projectRoot, ctx, &warnings); err != nil {
				return nil, err
			}
			dropins[j] = dropin
		}
		doc.Systemd.Units[i] = unit
	}
	return warnings, nil
}

func applySecondaryToUnitLike(entity map[string]interface{}, identityKey, projectRoot string, ctx map[string]interface{}, warnings *[]Warning) error {
	marker, has := entity["template"]
	if !has {
		return nil
	}
	recognized, warn := normalizeTemplateMarker(marker)
	if warn != "" {
		id, _ := entity[identityKey].(string)
		*warnings = append(*warnings, Warning{Path: id, Message: warn})
	}
	delete(entity, "template")
	if recognized {
		contents, _ := entity["contents"].(string)
		rendered, err := templating.RenderOnce(projectRoot, "secondary.tmp", contents, nil, nil, ctx)
		if err != nil {
			return err
		}
		entity["contents"] = rendered
	}
	return nil
}

// checkOwnershipAmbiguity warns on any Directory/Link/File whose
// user or group sub-object specifies both id and name, a corpus-observed
// ambiguity (§7) that C5 resolves by emitting both fields but that is
// surfaced here once, centrally, rather than re-detected in every
// emitter.
func checkOwnershipAmbiguity(doc document.Document) []Warning {
	var warnings []Warning
	check := func(identity string, entity map[string]interface{}) {
		for _, field := range []string{"user", "group"} {
			owner, ok := entity[field].(map[string]interface{})
			if !ok {
				continue
			}
			_, hasID := owner["id"]
			_, hasName := owner["name"]
			if hasID && hasName {
				warnings = append(warnings, Warning{
					Path:    identity,
					Message: fmt.Sprintf("%s ownership specifies both id and name", field),
				})
			}
		}
	}

	for _, kind := range [][]any{doc.Storage.Directories, doc.Storage.Links, doc.Storage.Files} {
		for _, e := range kind {
			m := asMap(e)
			path, _ := m["path"].(string)
			check(path, m)
		}
	}
	return warnings
}

// normalizeTemplateMarker reports whether marker names the jinja secondary
// pass (recognizing both `jinja` and the corpus's `template=jinja`
// spelling as synonyms), and a warning message when it names anything
// else.
func normalizeTemplateMarker(marker interface{}) (recognized bool, warning string) {
	s, ok := marker.(string)
	if !ok {
		return false, fmt.Sprintf("unrecognized template marker value: %v", marker)
	}
	switch s {
	case "jinja", "template=jinja":
		return true, ""
	default:
		return false, fmt.Sprintf("unrecognized template marker value: %q", s)
	}
}
