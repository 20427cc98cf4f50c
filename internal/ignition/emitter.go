// Package ignition implements the Ignition Emitter (C5): translating a
// merged document.Document into Ignition JSON. It populates
// github.com/coreos/ignition/v2's own config types rather than hand-rolling
// a parallel struct tree, the same pattern the openshift-image-
// customization-controller's ignition builder uses (construct
// types.Config, then json.Marshal).
package ignition

import (
	"encoding/json"
	"sort"

	ignutil "github.com/coreos/ignition/v2/config/util"
	"github.com/coreos/ignition/v2/config/v3_4/types"

	"butane-transpile/internal/document"
)

const defaultVersion = "3.4.0"

// Emit walks doc and returns the Ignition JSON document it translates to.
// Unknown top-level sections (doc.Extra) are passed through unchanged by
// merging them into the marshaled output, since C5 only normalizes the
// encoding of the entity classes spec.md §3 identifies.
func Emit(doc document.Document) ([]byte, error) {
	cfg := types.Config{
		Ignition: types.Ignition{Version: ignitionVersion(doc)},
	}

	directories, err := emitDirectories(doc.Storage.Directories)
	if err != nil {
		return nil, err
	}
	links, err := emitLinks(doc.Storage.Links)
	if err != nil {
		return nil, err
	}
	files, err := emitFiles(doc.Storage.Files)
	if err != nil {
		return nil, err
	}
	units, err := emitUnits(doc.Systemd.Units)
	if err != nil {
		return nil, err
	}

	cfg.Storage.Directories = directories
	cfg.Storage.Links = links
	cfg.Storage.Files = files
	cfg.Systemd.Units = units
	cfg.Passwd.Users = emitPasswdUsers(doc.Passwd.Users)
	cfg.Passwd.Groups = emitPasswdGroups(doc.Passwd.Groups)

	encoded, err := json.Marshal(cfg)
	if err != nil {
		return nil, NewEmissionError("<config>", err.Error())
	}

	return mergeExtra(encoded, doc.Extra)
}

// ignitionVersion reads the `ignition.version` field the seed document
// declares (spec.md §4.3 item 1), defaulting only as a last resort: a
// well-formed seed always sets this explicitly.
func ignitionVersion(doc document.Document) string {
	section, ok := doc.Extra["ignition"].(map[string]interface{})
	if !ok {
		return defaultVersion
	}
	version, ok := section["version"].(string)
	if !ok || version == "" {
		return defaultVersion
	}
	return version
}

func emitDirectories(entries []any) ([]types.Directory, error) {
	out := make([]types.Directory, 0, len(entries))
	for _, e := range entries {
		m := asMap(e)
		out = append(out, types.Directory{
			Node: emitNode(m),
			DirectoryEmbedded1: types.DirectoryEmbedded1{
				Mode: modeOf(m),
			},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func emitLinks(entries []any) ([]types.Link, error) {
	out := make([]types.Link, 0, len(entries))
	for _, e := range entries {
		m := asMap(e)
		target, _ := m["target"].(string)
		hard, hasHard := m["hard"].(bool)
		link := types.Link{
			Node: emitNode(m),
			LinkEmbedded1: types.LinkEmbedded1{
				Target: ignutil.StrToPtr(target),
			},
		}
		if hasHard {
			link.Hard = ignutil.BoolToPtr(hard)
		}
		out = append(out, link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func emitFiles(entries []any) ([]types.File, error) {
	out := make([]types.File, 0, len(entries))
	for _, e := range entries {
		m := asMap(e)
		path, _ := m["path"].(string)
		contents := asMap(m["contents"])

		resource, err := emitFileResource(path, contents)
		if err != nil {
			return nil, err
		}

		out = append(out, types.File{
			Node: emitNode(m),
			FileEmbedded1: types.FileEmbedded1{
				Mode:     modeOf(m),
				Contents: resource,
			},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// emitFileResource normalizes a File's contents per spec.md §4.5:
// contents.inline is re-encoded as a percent-escaped `data:` URI;
// contents.source (already a `data:` URI from binary inlining, or an
// upstream URL with a verification hash) is emitted untouched.
func emitFileResource(path string, contents map[string]interface{}) (types.Resource, error) {
	if inline, ok := contents["inline"].(string); ok {
		return types.Resource{Source: ignutil.StrToPtr(inlineDataURI(inline))}, nil
	}
	if source, ok := contents["source"].(string); ok {
		resource := types.Resource{Source: ignutil.StrToPtr(source)}
		if verification, ok := contents["verification"].(string); ok && verification != "" {
			resource.Verification = types.Verification{Hash: ignutil.StrToPtr(verification)}
		}
		return resource, nil
	}
	if _, ok := contents["local"]; ok {
		return types.Resource{}, NewEmissionError(path, "contents.local survived past the merger; I1 violated")
	}
	return types.Resource{}, nil
}

func emitUnits(entries []any) ([]types.Unit, error) {
	out := make([]types.Unit, 0, len(entries))
	for _, e := range entries {
		m := asMap(e)
		name, _ := m["name"].(string)

		unit := types.Unit{Name: name}
		if contents, ok := m["contents"].(string); ok {
			unit.Contents = ignutil.StrToPtr(contents)
		}
		if enabled, ok := m["enabled"].(bool); ok {
			unit.Enabled = ignutil.BoolToPtr(enabled)
		}
		if mask, ok := m["mask"].(bool); ok {
			unit.Mask = ignutil.BoolToPtr(mask)
		}

		dropins, _ := m["dropins"].([]interface{})
		emittedDropins := make([]types.Dropin, 0, len(dropins))
		for _, d := range dropins {
			dm := asMap(d)
			dropinName, _ := dm["name"].(string)
			dropin := types.Dropin{Name: dropinName}
			if contents, ok := dm["contents"].(string); ok {
				dropin.Contents = ignutil.StrToPtr(contents)
			}
			emittedDropins = append(emittedDropins, dropin)
		}
		sort.Slice(emittedDropins, func(i, j int) bool { return emittedDropins[i].Name < emittedDropins[j].Name })
		unit.Dropins = emittedDropins

		out = append(out, unit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// emitPasswdUsers and emitPasswdGroups pass Passwd entries through with
// only the common, near-universal Ignition fields recognized: the
// identified entity classes in spec.md §3 do not cover Passwd, and §4.4's
// merge strategy treats the whole sequence wholesale, so C5 does not
// impose further structure on it beyond what Ignition itself requires.
func emitPasswdUsers(entries []any) []types.PasswdUser {
	out := make([]types.PasswdUser, 0, len(entries))
	for _, e := range entries {
		m := asMap(e)
		name, _ := m["name"].(string)
		user := types.PasswdUser{Name: name}
		if hash, ok := m["password_hash"].(string); ok {
			user.PasswordHash = ignutil.StrToPtr(hash)
		}
		if keys, ok := m["ssh_authorized_keys"].([]interface{}); ok {
			for _, k := range keys {
				if key, ok := k.(string); ok {
					user.SSHAuthorizedKeys = append(user.SSHAuthorizedKeys, types.SSHAuthorizedKey(key))
				}
			}
		}
		if shell, ok := m["shell"].(string); ok {
			user.Shell = ignutil.StrToPtr(shell)
		}
		out = append(out, user)
	}
	return out
}

func emitPasswdGroups(entries []any) []types.PasswdGroup {
	out := make([]types.PasswdGroup, 0, len(entries))
	for _, e := range entries {
		m := asMap(e)
		name, _ := m["name"].(string)
		group := types.PasswdGroup{Name: name}
		if hash, ok := m["password_hash"].(string); ok {
			group.PasswordHash = ignutil.StrToPtr(hash)
		}
		out = append(out, group)
	}
	return out
}

// emitNode builds the shared Node fields (path, overwrite, user, group)
// present on Directory, Link, and File. Ownership by id or name is
// emitted as the corresponding Ignition sub-object, per spec.md §4.5.
func emitNode(m map[string]interface{}) types.Node {
	path, _ := m["path"].(string)
	node := types.Node{Path: path}
	if overwrite, ok := m["overwrite"].(bool); ok {
		node.Overwrite = ignutil.BoolToPtr(overwrite)
	}
	node.User = emitNodeUser(asMap(m["user"]))
	node.Group = emitNodeGroup(asMap(m["group"]))
	return node
}

func emitNodeUser(m map[string]interface{}) types.NodeUser {
	var user types.NodeUser
	if id, ok := intOf(m["id"]); ok {
		user.ID = ignutil.IntToPtr(id)
	}
	if name, ok := m["name"].(string); ok {
		user.Name = ignutil.StrToPtr(name)
	}
	return user
}

func emitNodeGroup(m map[string]interface{}) types.NodeGroup {
	var group types.NodeGroup
	if id, ok := intOf(m["id"]); ok {
		group.ID = ignutil.IntToPtr(id)
	}
	if name, ok := m["name"].(string); ok {
		group.Name = ignutil.StrToPtr(name)
	}
	return group
}

// modeOf returns a *int for an entity's mode field. Ignition JSON expects
// modes as decimal integers, per spec.md §4.5; yaml.v3 decodes integral
// YAML scalars as int (reading a leading-zero literal such as 0644 as
// octal, i.e. 420), so the value arrives already numeric and no further
// reinterpretation happens here.
func modeOf(m map[string]interface{}) *int {
	mode, ok := intOf(m["mode"])
	if !ok {
		return nil
	}
	return ignutil.IntToPtr(mode)
}

func intOf(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// mergeExtra unions doc.Extra's top-level keys into the marshaled config,
// preserving the typed output for every key C5 understands.
func mergeExtra(encoded []byte, extra map[string]any) ([]byte, error) {
	if len(extra) == 0 {
		return encoded, nil
	}

	var merged map[string]interface{}
	if err := json.Unmarshal(encoded, &merged); err != nil {
		return nil, NewEmissionError("<config>", err.Error())
	}
	for k, v := range extra {
		if k == "ignition" {
			continue
		}
		merged[k] = v
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return nil, NewEmissionError("<config>", err.Error())
	}
	return out, nil
}
