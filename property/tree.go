package property

import (
	"encoding/json"
	"fmt"

	lerror "lula/error"

	"gopkg.in/yaml.v3"
)

type Kind int

const (
	KindInvalid Kind = iota
	KindScalar
	KindMapping
	KindSequence
)

// Tree is one level of an object's property structure.
type Tree map[string]Node

// Node is a tagged variant over the three shapes a property value can take:
// a scalar payload, a nested mapping, or a sequence of mappings.
type Node struct {
	Kind     Kind
	Value    any
	Children Tree
	Items    []Tree
}

func Scalar(value any) Node {
	return Node{Kind: KindScalar, Value: value}
}

func Mapping(children Tree) Node {
	return Node{Kind: KindMapping, Children: children}
}

func Sequence(items ...Tree) Node {
	return Node{Kind: KindSequence, Items: items}
}

// FromValue builds a Node from a decoded JSON/YAML value. Mappings must be
// keyed by strings and sequence elements must themselves be mappings.
func FromValue(value any) (Node, error) {
	switch tv := value.(type) {
	case map[string]any:
		tree, err := FromMap(tv)
		if err != nil {
			return Node{}, err
		}
		return Mapping(tree), nil
	case []any:
		items := make([]Tree, 0, len(tv))
		for at, element := range tv {
			inner, ok := element.(map[string]any)
			if !ok {
				return Node{}, lerror.LulaGeneralError{
					Code:   lerror.InputError,
					Origin: fmt.Errorf("sequence element[%d] is %T, not a mapping", at, element),
					Msg:    "error while build property node",
				}
			}
			tree, err := FromMap(inner)
			if err != nil {
				return Node{}, err
			}
			items = append(items, tree)
		}
		return Sequence(items...), nil
	default:
		return Scalar(tv), nil
	}
}

// FromMap builds a Tree from a decoded JSON/YAML mapping.
func FromMap(value map[string]any) (Tree, error) {
	tree := make(Tree, len(value))
	for key, element := range value {
		node, err := FromValue(element)
		if err != nil {
			return nil, err
		}
		tree[key] = node
	}
	return tree, nil
}

// Interface converts the node back to plain decoded form
// (map[string]any / []any / scalar).
func (n Node) Interface() any {
	switch n.Kind {
	case KindMapping:
		return n.Children.Interface()
	case KindSequence:
		items := make([]any, 0, len(n.Items))
		for _, element := range n.Items {
			items = append(items, element.Interface())
		}
		return items
	default:
		return n.Value
	}
}

func (t Tree) Interface() map[string]any {
	out := make(map[string]any, len(t))
	for key, node := range t {
		out[key] = node.Interface()
	}
	return out
}

func (n Node) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindScalar:
		return json.Marshal(n.Value)
	case KindMapping:
		return json.Marshal(n.Children)
	case KindSequence:
		return json.Marshal(n.Items)
	}
	return nil, lerror.LulaGeneralError{
		Code:   lerror.InvalidStateError,
		Origin: fmt.Errorf("node kind %d is not marshalable", n.Kind),
		Msg:    "error while marshal property node",
	}
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	node, err := FromValue(value)
	if err != nil {
		return err
	}
	*n = node
	return nil
}

func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var scalar any
		if err := value.Decode(&scalar); err != nil {
			return err
		}
		*n = Scalar(scalar)
	case yaml.MappingNode:
		tree := make(Tree)
		if err := value.Decode(&tree); err != nil {
			return err
		}
		*n = Mapping(tree)
	case yaml.SequenceNode:
		items := make([]Tree, 0, len(value.Content))
		for at, element := range value.Content {
			if element.Kind != yaml.MappingNode {
				return lerror.LulaGeneralError{
					Code:   lerror.InputError,
					Origin: fmt.Errorf("sequence element[%d] is not a mapping", at),
					Msg:    "error while decode property node",
				}
			}
			tree := make(Tree)
			if err := element.Decode(&tree); err != nil {
				return err
			}
			items = append(items, tree)
		}
		*n = Sequence(items...)
	default:
		return lerror.LulaGeneralError{
			Code:   lerror.InputError,
			Origin: fmt.Errorf("unsupported yaml node kind %d", value.Kind),
			Msg:    "error while decode property node",
		}
	}
	return nil
}
