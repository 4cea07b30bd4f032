package labeldoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/reviewsummary/internal/summary"
)

const mergeKey = "<<"

// decodeYAML walks the node tree instead of unmarshalling into a map so
// mapping order survives.
func decodeYAML(src []byte) (summary.Value, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return summary.Scalar{}, nil
		}
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("parsing YAML: expected a single document")
	}
	return fromYAMLNode(&doc, 0)
}

const maxAliasDepth = 64

func fromYAMLNode(n *yaml.Node, depth int) (summary.Value, error) {
	if depth > maxAliasDepth {
		return nil, fmt.Errorf("line %d: document nested too deeply", n.Line)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return summary.Scalar{}, nil
		}
		return fromYAMLNode(n.Content[0], depth+1)
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias, depth+1)
	case yaml.SequenceNode:
		list := make(summary.List, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAMLNode(c, depth+1)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.MappingNode:
		obj := summary.NewObject()
		if err := mergeMapping(obj, n, depth); err != nil {
			return nil, err
		}
		return obj, nil
	case yaml.ScalarNode:
		if n.ShortTag() == "!!str" {
			return summary.Scalar{V: n.Value}, nil
		}
		var x any
		if err := n.Decode(&x); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return summary.FromGo(x)
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

// mergeMapping copies the pairs of n into obj. Keys brought in through a
// "<<" merge never override keys written in the mapping itself.
func mergeMapping(obj *summary.Object, n *yaml.Node, depth int) error {
	own := map[string]bool{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i]; k.Value != mergeKey || k.ShortTag() != "!!merge" {
			own[k.Value] = true
		}
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
		}
		if k.Value == mergeKey && k.ShortTag() == "!!merge" {
			if err := mergeInto(obj, own, v, depth); err != nil {
				return err
			}
			continue
		}
		val, err := fromYAMLNode(v, depth+1)
		if err != nil {
			return err
		}
		obj.Set(k.Value, val)
	}
	return nil
}

func mergeInto(obj *summary.Object, own map[string]bool, src *yaml.Node, depth int) error {
	var sources []*yaml.Node
	if src.Kind == yaml.SequenceNode {
		sources = src.Content
	} else {
		sources = []*yaml.Node{src}
	}
	for _, s := range sources {
		v, err := fromYAMLNode(s, depth+1)
		if err != nil {
			return err
		}
		m, ok := v.(*summary.Object)
		if !ok {
			return fmt.Errorf("line %d: merge source must be a mapping", s.Line)
		}
		for _, key := range m.Keys() {
			if own[key] {
				continue
			}
			if _, exists := obj.Get(key); exists {
				continue
			}
			child, _ := m.Get(key)
			obj.Set(key, child)
		}
	}
	return nil
}

func toYAMLNode(v summary.Value) (*yaml.Node, error) {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case *summary.Object:
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range x.Keys() {
			child, _ := x.Get(k)
			cn, err := toYAMLNode(child)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, cn)
		}
		return n, nil
	case summary.List:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, e := range x {
			cn, err := toYAMLNode(e)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, cn)
		}
		return n, nil
	case summary.Scalar:
		n := &yaml.Node{}
		if err := n.Encode(x.V); err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}
