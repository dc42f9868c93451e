// Package fieldpath implements the dotted-path field navigation shared by
// selection/condition rule matching (against an Event) and playbook
// trigger/action-condition matching (against an Alert). A path segment
// that is missing or non-navigable yields no match rather than an error,
// so callers never need a separate existence check.
package fieldpath

import "strings"

// Get navigates root by the dot-separated segments of path, returning the
// value found and whether the full path resolved. root (and any nested
// value reached along the way) must be a map[string]any for navigation to
// continue; any other shape at a non-final segment is a dead end.
func Get(root any, path string) (any, bool) {
	cur := root
	for _, segment := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[segment]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
