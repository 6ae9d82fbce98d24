package schema

import (
	"encoding/json"
	"fmt"

	"github.com/valuerec/valuerec-go/pkg/models"
)

// NodeKind tags a schema tree node. The tree is a closed variant: a field
// is a leaf, an element nests children. Arrays are a flag on either kind
// and never contribute a path segment of their own.
type NodeKind string

const (
	KindField   NodeKind = "field"
	KindElement NodeKind = "element"
)

// Node is one node of a template's field schema tree.
type Node struct {
	Kind     NodeKind `json:"kind"`
	Key      string   `json:"key"`
	Array    bool     `json:"array,omitempty"`
	Type     string   `json:"type,omitempty"` // ontology concept URI of the field
	Children []*Node  `json:"children,omitempty"`
}

// ExtractFieldPaths walks the schema tree and returns every addressable
// field path in declaration order. Field nodes contribute their accumulated
// path and do not recurse; element nodes recurse with the path extended by
// their key; array wrappers are unwrapped transparently.
func ExtractFieldPaths(root *Node) []models.FieldPath {
	if root == nil {
		return nil
	}
	var paths []models.FieldPath
	var walk func(n *Node, prefix []string)
	walk = func(n *Node, prefix []string) {
		for _, child := range n.Children {
			keys := make([]string, len(prefix), len(prefix)+1)
			copy(keys, prefix)
			keys = append(keys, child.Key)
			switch child.Kind {
			case KindField:
				paths = append(paths, models.NewFieldPath(keys...))
			case KindElement:
				walk(child, keys)
			}
		}
	}
	walk(root, nil)
	return paths
}

// FieldTypes returns the ontology concept URI declared for each field,
// keyed by normalized path. Fields without a declared type are omitted.
func FieldTypes(root *Node) map[string]string {
	types := make(map[string]string)
	if root == nil {
		return types
	}
	var walk func(n *Node, prefix []string)
	walk = func(n *Node, prefix []string) {
		for _, child := range n.Children {
			keys := make([]string, len(prefix), len(prefix)+1)
			copy(keys, prefix)
			keys = append(keys, child.Key)
			switch child.Kind {
			case KindField:
				if child.Type != "" {
					types[models.NewFieldPath(keys...).NormalizedPath] = child.Type
				}
			case KindElement:
				walk(child, keys)
			}
		}
	}
	walk(root, nil)
	return types
}

// ParseTemplate decodes a template schema document into a Node tree and
// validates every node kind.
func ParseTemplate(data []byte) (*Node, error) {
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: parsing template schema: %v", models.ErrInvalidInput, err)
	}
	if root.Kind == "" {
		root.Kind = KindElement
	}
	if err := validateNode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

func validateNode(n *Node) error {
	switch n.Kind {
	case KindField:
		if len(n.Children) > 0 {
			return fmt.Errorf("%w: field node %q cannot have children", models.ErrInvalidInput, n.Key)
		}
	case KindElement:
		for _, child := range n.Children {
			if child.Key == "" {
				return fmt.Errorf("%w: child of element %q has no key", models.ErrInvalidInput, n.Key)
			}
			if err := validateNode(child); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown schema node kind %q", models.ErrInvalidInput, n.Kind)
	}
	return nil
}
