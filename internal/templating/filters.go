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
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// regexFlags builds an inline flag prefix ("(?i)", "(?im)", ...) from the
// ignorecase/multiline keyword arguments shared by the regex_* filters.
func regexFlags(args []interface{}) string {
	var flags strings.Builder
	for _, arg := range args {
		switch v := arg.(type) {
		case map[string]interface{}:
			if ic, ok := v["ignorecase"].(bool); ok && ic {
				flags.WriteByte('i')
			}
			if ml, ok := v["multiline"].(bool); ok && ml {
				flags.WriteByte('m')
			}
		}
	}
	if flags.Len() == 0 {
		return ""
	}
	return "(?" + flags.String() + ")"
}

// regexEscapeFilter escapes regex metacharacters in a string so it can be
// embedded literally inside another pattern.
func regexEscapeFilter(in interface{}, args ...interface{}) (interface{}, error) {
	str, ok := in.(string)
	if !ok {
		return nil, fmt.Errorf("regex_escape: expected string, got %T", in)
	}
	return regexp.QuoteMeta(str), nil
}

// regexSearchFilter reports whether pattern matches anywhere in the input.
func regexSearchFilter(in interface{}, args ...interface{}) (interface{}, error) {
	str, ok := in.(string)
	if !ok {
		return nil, fmt.Errorf("regex_search: expected string, got %T", in)
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("regex_search: requires a pattern argument")
	}
	pattern, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("regex_search: pattern must be a string")
	}
	re, err := regexp.Compile(regexFlags(args[1:]) + pattern)
	if err != nil {
		return nil, fmt.Errorf("regex_search: invalid pattern %q: %w", pattern, err)
	}
	return re.MatchString(str), nil
}

// regexMatchFilter reports whether pattern matches the entire input.
func regexMatchFilter(in interface{}, args ...interface{}) (interface{}, error) {
	str, ok := in.(string)
	if !ok {
		return nil, fmt.Errorf("regex_match: expected string, got %T", in)
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("regex_match: requires a pattern argument")
	}
	pattern, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("regex_match: pattern must be a string")
	}
	anchored := "^(?:" + pattern + ")$"
	re, err := regexp.Compile(regexFlags(args[1:]) + anchored)
	if err != nil {
		return nil, fmt.Errorf("regex_match: invalid pattern %q: %w", pattern, err)
	}
	return re.MatchString(str), nil
}

// regexReplaceFilter replaces all matches of pattern with replacement.
func regexReplaceFilter(in interface{}, args ...interface{}) (interface{}, error) {
	str, ok := in.(string)
	if !ok {
		return nil, fmt.Errorf("regex_replace: expected string, got %T", in)
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("regex_replace: requires pattern and replacement arguments")
	}
	pattern, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("regex_replace: pattern must be a string")
	}
	replacement, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("regex_replace: replacement must be a string")
	}
	re, err := regexp.Compile(regexFlags(args[2:]) + pattern)
	if err != nil {
		return nil, fmt.Errorf("regex_replace: invalid pattern %q: %w", pattern, err)
	}
	return re.ReplaceAllString(str, replacement), nil
}

// cidr2ipFilter parses a CIDR and returns the address n (optional first
// argument, default 0) past its masked network address.
func cidr2ipFilter(in interface{}, args ...interface{}) (interface{}, error) {
	str, ok := in.(string)
	if !ok {
		return nil, fmt.Errorf("cidr2ip: expected string, got %T", in)
	}
	prefix, err := netip.ParsePrefix(str)
	if err != nil {
		return nil, fmt.Errorf("cidr2ip: invalid CIDR %q: %w", str, err)
	}
	n := 0
	if len(args) > 0 {
		switch v := args[0].(type) {
		case int:
			n = v
		case float64:
			n = int(v)
		}
	}
	addr := prefix.Masked().Addr()
	for i := 0; i < n && prefix.Contains(addr); i++ {
		addr = addr.Next()
	}
	if !prefix.Contains(addr) {
		return nil, fmt.Errorf("cidr2ip: offset %d lies outside %q", n, str)
	}
	return addr.String(), nil
}

// indentFilter indents every line of the input by width spaces. Matches the
// engine's whitespace-control philosophy (TrimBlocks/LeftStripBlocks): the
// first line is indented only when the optional positional boolean
// argument ("first") is true. Keyword arguments are not read.
func indentFilter(in interface{}, args ...interface{}) (interface{}, error) {
	str, ok := in.(string)
	if !ok {
		return nil, fmt.Errorf("indent: expected string, got %T", in)
	}

	width := 4
	first := false
	for _, arg := range args {
		switch v := arg.(type) {
		case int:
			width = v
		case float64:
			width = int(v)
		case bool:
			first = v
		}
	}

	pad := strings.Repeat(" ", width)
	lines := strings.Split(str, "\n")
	for i, line := range lines {
		if i == 0 && !first {
			continue
		}
		if line == "" {
			continue
		}
		lines[i] = pad + line
	}
	return strings.Join(lines, "\n"), nil
}

// yamlFilter marshals a value to a YAML string.
func yamlFilter(in interface{}, args ...interface{}) (interface{}, error) {
	out, err := yaml.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

// normativeFilters returns the filter table required by the fragment
// templating contract.
func normativeFilters() map[string]FilterFunc {
	return map[string]FilterFunc{
		"regex_escape":  regexEscapeFilter,
		"regex_search":  regexSearchFilter,
		"regex_match":   regexMatchFilter,
		"regex_replace": regexReplaceFilter,
		"cidr2ip":       cidr2ipFilter,
		"indent":        indentFilter,
		"yaml":          yamlFilter,
	}
}

// directoryFunctions builds the searchpath-aware global functions
// (list_files, list_dirs, get_file_mode, has_executable_bit, raw_import),
// each resolved relative to root via io/fs so results never depend on the
// process's current working directory.
//
// raw_import backs the `import "relative/path" as name` directive: fragment
// authors write `{% set name = raw_import("relative/path") %}` to bind the
// raw bytes of another searchpath file to a template variable, without
// parsing it as a template. Gonja's builtin `import` tag instead imports a
// template's macro/variable namespace, which is not what this directive
// means here, so the raw-content form is exposed as a function rather than
// by overriding the builtin control structure.
func directoryFunctions(root string) map[string]GlobalFunc {
	fsys := os.DirFS(root)

	resolve := func(args []interface{}) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("requires exactly one path argument")
		}
		p, ok := args[0].(string)
		if !ok {
			return "", fmt.Errorf("path argument must be a string")
		}
		return strings.TrimPrefix(filepath.ToSlash(p), "./"), nil
	}

	listFiles := func(args ...interface{}) (interface{}, error) {
		dir, err := resolve(args)
		if err != nil {
			return nil, fmt.Errorf("list_files: %w", err)
		}
		entries, err := fs.ReadDir(fsys, ".")
		if dir != "" && dir != "." {
			entries, err = fs.ReadDir(fsys, dir)
		}
		if err != nil {
			return nil, fmt.Errorf("list_files: %w", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		result := make([]interface{}, len(names))
		for i, n := range names {
			result[i] = n
		}
		return result, nil
	}

	listDirs := func(args ...interface{}) (interface{}, error) {
		dir, err := resolve(args)
		if err != nil {
			return nil, fmt.Errorf("list_dirs: %w", err)
		}
		entries, err := fs.ReadDir(fsys, ".")
		if dir != "" && dir != "." {
			entries, err = fs.ReadDir(fsys, dir)
		}
		if err != nil {
			return nil, fmt.Errorf("list_dirs: %w", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		result := make([]interface{}, len(names))
		for i, n := range names {
			result[i] = n
		}
		return result, nil
	}

	getFileMode := func(args ...interface{}) (interface{}, error) {
		p, err := resolve(args)
		if err != nil {
			return nil, fmt.Errorf("get_file_mode: %w", err)
		}
		info, err := fs.Stat(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("get_file_mode: %w", err)
		}
		return fmt.Sprintf("%04o", info.Mode().Perm()), nil
	}

	hasExecutableBit := func(args ...interface{}) (interface{}, error) {
		p, err := resolve(args)
		if err != nil {
			return nil, fmt.Errorf("has_executable_bit: %w", err)
		}
		info, err := fs.Stat(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("has_executable_bit: %w", err)
		}
		return info.Mode().Perm()&0o111 != 0, nil
	}

	rawImport := func(args ...interface{}) (interface{}, error) {
		p, err := resolve(args)
		if err != nil {
			return nil, fmt.Errorf("raw_import: %w", err)
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("raw_import: %w", err)
		}
		return string(content), nil
	}

	return map[string]GlobalFunc{
		"list_files":         listFiles,
		"list_dirs":          listDirs,
		"get_file_mode":      getFileMode,
		"has_executable_bit": hasExecutableBit,
		"raw_import":         rawImport,
	}
}
