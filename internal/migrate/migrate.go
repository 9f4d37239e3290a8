// Package migrate upgrades config documents written by older schema versions.
//
// A [Document] is the generic map produced by decoding a config file, so the
// same [Step] applies whether the file on disk is TOML or YAML. Steps edit
// the document in place; the caller re-encodes it in the original format.
package migrate

import (
	"strings"
)

// ///////////////////////////////////////////////
// Document
// ///////////////////////////////////////////////

// Document is a decoded config file. Nested tables (TOML) and mappings (YAML)
// are themselves map[string]any.
type Document map[string]any

// VersionKey is the top-level key holding the schema version.
const VersionKey = "version"

// Version returns the document's schema version. A missing, zero, or
// non-numeric version reads as 1, the first schema.
func (d Document) Version() int {
	var v int
	switch n := d[VersionKey].(type) {
	case int:
		v = n
	case int64:
		v = int(n)
	case uint64:
		v = int(n)
	case float64:
		v = int(n)
	}
	if v == 0 {
		return 1
	}
	return v
}

// Section returns the nested table at the dotted path ("log", "a.b"). The
// second result is false when any element is missing or not a table.
func (d Document) Section(path string) (Document, bool) {
	cur := d
	if path == "" {
		return cur, true
	}
	for _, name := range strings.Split(path, ".") {
		next, ok := cur[name].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Rename moves the value at the dotted key path to newName within the same
// table. An existing value under newName is kept and the old key dropped.
// It reports whether the old key was present.
func (d Document) Rename(path, newName string) bool {
	section, key := splitPath(path)
	tbl, ok := d.Section(section)
	if !ok {
		return false
	}
	v, ok := tbl[key]
	if !ok {
		return false
	}
	delete(tbl, key)
	if _, taken := tbl[newName]; !taken {
		tbl[newName] = v
	}
	return true
}

// Delete removes the value at the dotted key path and reports whether it was
// present.
func (d Document) Delete(path string) bool {
	section, key := splitPath(path)
	tbl, ok := d.Section(section)
	if !ok {
		return false
	}
	if _, ok := tbl[key]; !ok {
		return false
	}
	delete(tbl, key)
	return true
}

func splitPath(path string) (section, key string) {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}
