package store

import (
	"sort"
	"strings"
)

// ChildPrefix returns the key prefix shared by all children of prefix
// (prefix with exactly one trailing "/").
func ChildPrefix(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/"
}

// Children reduces entries to the direct children of prefix, as returned by
// IStore.ListChildren. Entries nested deeper collapse into one directory node, entries
// outside prefix are dropped. The result is ordered by key.
func Children(prefix string, entries []Node) []Node {
	base := ChildPrefix(prefix)

	nodes := make(map[string]Node, len(entries))
	for _, e := range entries {
		if !strings.HasPrefix(e.Key, base) {
			continue
		}
		rest := e.Key[len(base):]
		if rest == "" {
			continue
		}
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			dir := base + rest[:i]
			if _, exists := nodes[dir]; !exists {
				nodes[dir] = Node{Key: dir, Dir: true}
			}
			continue
		}
		nodes[e.Key] = Node{Key: e.Key, Value: e.Value}
	}

	result := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}
