package reconciler

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"butane-transpile/internal/document"
)

// buildOps translates doc's identified entity classes into the plain
// map/slice shape the reconciler.sls template iterates over, computing
// path remapping, service-name extraction, and accumulator membership in
// Go so the template itself only formats — the same division of labor
// the teacher keeps between Go-side data preparation and the HAProxy
// config templates it renders.
func buildOps(doc document.Document) (map[string]interface{}, error) {
	directories := buildDirectoryOps(doc.Storage.Directories)
	links := buildLinkOps(doc.Storage.Links)

	fileOps, err := buildFileOps(doc.Storage.Files)
	if err != nil {
		return nil, err
	}

	unitOps, unitLinks, err := buildUnitOps(doc.Systemd.Units)
	if err != nil {
		return nil, err
	}
	links = append(links, unitLinks...)

	changed, enabled, disabled := buildAccumulators(fileOps, unitOps)

	return map[string]interface{}{
		"directories":      directories,
		"links":            links,
		"files":            fileOps,
		"units":            unitOps,
		"service_changed":  changed,
		"service_enabled":  enabled,
		"service_disabled": disabled,
	}, nil
}

func buildDirectoryOps(entries []any) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		m := asMap(e)
		out = append(out, map[string]interface{}{
			"path":  m["path"],
			"mode":  m["mode"],
			"user":  ownerLabel(asMap(m["user"])),
			"group": ownerLabel(asMap(m["group"])),
		})
	}
	return out
}

func buildLinkOps(entries []any) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		m := asMap(e)
		hard, _ := m["hard"].(bool)
		out = append(out, map[string]interface{}{
			"path":   m["path"],
			"target": m["target"],
			"hard":   hard,
			"user":   ownerLabel(asMap(m["user"])),
			"group":  ownerLabel(asMap(m["group"])),
		})
	}
	return out
}

func buildFileOps(entries []any) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		m := asMap(e)
		path, _ := m["path"].(string)
		contents := asMap(m["contents"])

		op := map[string]interface{}{
			"path":  remapPath(path),
			"mode":  m["mode"],
			"user":  ownerLabel(asMap(m["user"])),
			"group": ownerLabel(asMap(m["group"])),
		}

		if err := applyContents(op, path, contents); err != nil {
			return nil, err
		}
		applyServiceName(op, path)

		out = append(out, op)
	}
	return out, nil
}

// applyContents fills op's content fields per spec.md §4.6: inline
// content is embedded literally; a `data:` source is decoded and written
// atomically with a checksum-based unless-predicate; any other source is
// cited by URL alongside its verification hash.
func applyContents(op map[string]interface{}, path string, contents map[string]interface{}) error {
	if inline, ok := contents["inline"].(string); ok {
		op["kind"] = "inline"
		op["inline"] = inline
		return nil
	}
	if source, ok := contents["source"].(string); ok {
		if strings.HasPrefix(source, "data:") {
			payload, err := decodeDataURI(source)
			if err != nil {
				return NewEmissionError(path, err.Error())
			}
			op["kind"] = "source_data"
			op["data_base64"] = base64.StdEncoding.EncodeToString(payload)
			op["sha256"] = hex.EncodeToString(sha256Sum(payload))
			op["scratch_dir"] = "/run/butane-transpile/" + uuid.New().String()
			return nil
		}
		op["kind"] = "source_url"
		op["source_url"] = source
		if verification, ok := contents["verification"].(string); ok {
			op["verification"] = verification
		}
		return nil
	}
	if _, ok := contents["local"]; ok {
		return NewEmissionError(path, "contents.local survived past the merger; I1 violated")
	}
	op["kind"] = "empty"
	return nil
}

func decodeDataURI(source string) ([]byte, error) {
	idx := strings.Index(source, ",")
	if idx < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	meta, payload := source[len("data:"):idx], source[idx+1:]
	if strings.Contains(meta, "base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	return []byte(payload), nil
}

func sha256Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func applyServiceName(op map[string]interface{}, path string) {
	if name, ok := extractServiceName(path); ok {
		op["service_name"] = name
		op["has_service_name"] = true
	} else {
		op["has_service_name"] = false
	}
}

// buildUnitOps produces one op per Unit (plus one per Dropin, nested
// under it), and separately any masked-symlink-to-/dev/null Link entries
// a disabled+masked unit requires.
func buildUnitOps(entries []any) ([]map[string]interface{}, []map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(entries))
	var maskLinks []map[string]interface{}

	for _, e := range entries {
		m := asMap(e)
		name, _ := m["name"].(string)
		unitPath := "/etc/systemd/system/" + name

		op := map[string]interface{}{
			"name": name,
			"path": unitPath,
		}
		if contents, ok := m["contents"].(string); ok {
			op["has_contents"] = true
			op["contents"] = contents
		} else {
			op["has_contents"] = false
		}
		applyServiceName(op, unitPath)

		if enabled, ok := m["enabled"].(bool); ok {
			op["has_enabled"] = true
			op["enabled"] = enabled
			if enabled {
				op["unmask"] = true
			} else if mask, _ := m["mask"].(bool); mask {
				maskLinks = append(maskLinks, map[string]interface{}{
					"path":   unitPath,
					"target": "/dev/null",
					"hard":   false,
					"user":   "",
					"group":  "",
				})
			}
		} else {
			op["has_enabled"] = false
		}

		dropins, _ := m["dropins"].([]interface{})
		dropinOps := make([]map[string]interface{}, 0, len(dropins))
		for _, d := range dropins {
			dm := asMap(d)
			dropinName, _ := dm["name"].(string)
			dropinPath := unitPath + ".d/" + dropinName
			dropinOp := map[string]interface{}{
				"name": dropinName,
				"path": dropinPath,
			}
			if contents, ok := dm["contents"].(string); ok {
				dropinOp["has_contents"] = true
				dropinOp["contents"] = contents
			} else {
				dropinOp["has_contents"] = false
			}
			applyServiceName(dropinOp, dropinPath)
			dropinOps = append(dropinOps, dropinOp)
		}
		op["dropins"] = dropinOps

		out = append(out, op)
	}

	return out, maskLinks, nil
}

// buildAccumulators computes the three accumulator lists: service_changed
// gathers the service name of every file/unit/dropin op that names one
// (gated, at render time, on that operation actually changing something
// on the host); service_enabled/disabled gather every Unit whose enabled
// bit is set, unconditionally.
func buildAccumulators(fileOps, unitOps []map[string]interface{}) (changed, enabled, disabled []map[string]interface{}) {
	addChanged := func(op map[string]interface{}) {
		if has, _ := op["has_service_name"].(bool); has {
			changed = append(changed, map[string]interface{}{
				"service": op["service_name"],
				"path":    op["path"],
			})
		}
	}

	for _, op := range fileOps {
		addChanged(op)
	}
	for _, unit := range unitOps {
		addChanged(unit)
		if has, _ := unit["has_enabled"].(bool); has {
			name, _ := extractServiceName(unit["path"].(string))
			target := map[string]interface{}{"service": name, "unit": unit["name"]}
			if unit["enabled"].(bool) {
				enabled = append(enabled, target)
			} else {
				disabled = append(disabled, target)
			}
		}
		dropins, _ := unit["dropins"].([]map[string]interface{})
		for _, dropin := range dropins {
			addChanged(dropin)
		}
	}
	return changed, enabled, disabled
}

func ownerLabel(owner map[string]interface{}) interface{} {
	if name, ok := owner["name"]; ok {
		return name
	}
	if id, ok := owner["id"]; ok {
		return id
	}
	return nil
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}
