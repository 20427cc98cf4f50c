package document

import "gopkg.in/yaml.v3"

// decode parses rendered YAML text into a Document. yaml.v3 decodes
// mapping nodes into map[string]interface{} (unlike yaml.v2's
// map[interface{}]interface{}), so the Storage/Systemd/Passwd/Extra split
// below can assert directly on string-keyed maps.
func decode(sourcePath, rendered string) (Document, error) {
	var root map[string]interface{}
	if err := yaml.Unmarshal([]byte(rendered), &root); err != nil {
		return Document{}, NewYamlParseError(sourcePath, err)
	}

	doc := Document{Extra: map[string]any{}}
	for key, value := range root {
		switch key {
		case "storage":
			doc.Storage = decodeStorage(value)
		case "systemd":
			doc.Systemd = decodeSystemd(value)
		case "passwd":
			doc.Passwd = decodePasswd(value)
		default:
			doc.Extra[key] = value
		}
	}
	return doc, nil
}

func decodeStorage(value any) Storage {
	m := asMap(value)
	return Storage{
		Directories: asSlice(m["directories"]),
		Links:       asSlice(m["links"]),
		Files:       asSlice(m["files"]),
		Trees:       asSlice(m["trees"]),
	}
}

func decodeSystemd(value any) Systemd {
	m := asMap(value)
	return Systemd{Units: asSlice(m["units"])}
}

func decodePasswd(value any) Passwd {
	m := asMap(value)
	return Passwd{
		Users:  asSlice(m["users"]),
		Groups: asSlice(m["groups"]),
	}
}

func asMap(value any) map[string]interface{} {
	if m, ok := value.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func asSlice(value any) []any {
	if s, ok := value.([]interface{}); ok {
		return s
	}
	return nil
}
