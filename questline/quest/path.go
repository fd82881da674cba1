package quest

import (
	"strconv"
	"strings"
)

// Resolve extracts a value from a JSON-decoded structure using a small
// path language: dotted keys ("user.volume"), array indices
// ("swaps[0].amount") and a len(...) wrapper ("len(swaps)") that yields
// the length of the addressed array, or 0 when it is not one.
//
// Traversal stops the moment an intermediate value is missing or nil;
// the second return value reports whether the full path resolved.
// Resolve never panics.
func Resolve(root any, path string) (any, bool) {
	if inner, ok := lenWrapper(path); ok {
		value, _ := Resolve(root, inner)
		arr, ok := value.([]any)
		if !ok {
			return 0, true
		}
		return len(arr), true
	}

	current := root
	for _, key := range splitPath(path) {
		if current == nil {
			return nil, false
		}

		switch node := current.(type) {
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}

	if current == nil {
		return nil, false
	}
	return current, true
}

func lenWrapper(path string) (string, bool) {
	if strings.HasPrefix(path, "len(") && strings.HasSuffix(path, ")") {
		inner := path[len("len(") : len(path)-1]
		if inner != "" {
			return inner, true
		}
	}
	return "", false
}

// splitPath turns "user.tokenVolumes[0].totalVolume" into
// ["user" "tokenVolumes" "0" "totalVolume"]. Numeric segments act as
// array indices only when the value being traversed is an array, so
// objects keyed by numeric strings still resolve.
func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '.' || r == '[' || r == ']'
	})
}
