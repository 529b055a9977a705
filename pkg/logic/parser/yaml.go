package parser

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// object is a YAML mapping with its fields indexed by normalized key.
type object struct {
	node   *yaml.Node
	keys   []string
	fields map[string]*yaml.Node
	keyPos map[string]*yaml.Node
}

// newObject indexes a mapping node. It returns false for any other kind.
func newObject(n *yaml.Node) (*object, bool) {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, false
	}

	o := &object{
		node:   n,
		fields: make(map[string]*yaml.Node, len(n.Content)/2),
		keyPos: make(map[string]*yaml.Node, len(n.Content)/2),
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		o.keys = append(o.keys, key)
		o.fields[strings.ToLower(key)] = n.Content[i+1]
		o.keyPos[strings.ToLower(key)] = n.Content[i]
	}
	return o, true
}

// get returns the value of a field. Keys are matched case-insensitively.
func (o *object) get(key string) (*yaml.Node, bool) {
	v, ok := o.fields[key]
	if !ok || isNull(v) {
		return nil, false
	}
	return v, true
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// document returns the content node of a parsed document.
func document(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return n.Content[0]
	}
	return n
}

// readYAMLFile reads and parses a YAML or JSON file into a node tree.
func readYAMLFile(path string) (*yaml.Node, error) {
	// #nosec G304 - library paths are supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseYAMLBytes(data)
}

// parseYAMLBytes parses YAML or JSON, keeping line numbers on every node.
func parseYAMLBytes(data []byte) (*yaml.Node, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	return &node, nil
}
