package config

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// The loader walks yaml.Node trees instead of decoding into maps so that
// declaration order survives: event bindings, element children and column
// lists must come out exactly as written.

type entry struct {
	key  string
	node *yaml.Node
}

func unwrapDoc(n *yaml.Node) *yaml.Node {
	if n != nil && n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return n.Content[0]
	}
	return n
}

func mapEntries(n *yaml.Node) []entry {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]entry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, entry{key: n.Content[i].Value, node: resolveAlias(n.Content[i+1])})
	}
	return out
}

func mapLookup(n *yaml.Node, key string) *yaml.Node {
	for _, e := range mapEntries(n) {
		if e.key == key {
			return e.node
		}
	}
	return nil
}

func seqItems(n *yaml.Node) []*yaml.Node {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]*yaml.Node, 0, len(n.Content))
	for _, c := range n.Content {
		out = append(out, resolveAlias(c))
	}
	return out
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func scalarString(n *yaml.Node) string {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

func stringAt(n *yaml.Node, key string) string {
	return scalarString(mapLookup(n, key))
}

func boolAt(n *yaml.Node, key string, def bool) bool {
	v := scalarString(mapLookup(n, key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

func intAt(n *yaml.Node, key string) int {
	v, _ := strconv.Atoi(scalarString(mapLookup(n, key)))
	return v
}

func stringListAt(n *yaml.Node, key string) []string {
	var out []string
	for _, item := range seqItems(mapLookup(n, key)) {
		out = append(out, scalarString(item))
	}
	return out
}

// decodeAny flattens a node into plain Go values for generic property bags
// and for document validation.
func decodeAny(n *yaml.Node) any {
	if n == nil {
		return nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil
	}
	return v
}
