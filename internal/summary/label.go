package summary

import (
	"math"
	"strings"
)

// Reserved label metadata keys. Any key starting with "_" is metadata and is
// never matched against data.
const (
	keySectionTitle = "_sectionTitle"
	keyBlockTitle   = "_blockTitle"
	keyOrder        = "_order"
	keyColspan      = "_colspan"
	keyCollapsed    = "_collapsed"
)

// LabelNode is one entry of a label document. The set of implementations is
// closed: TextLabel, *Container and ArraySchema. Entries of any other shape
// are dropped while parsing.
type LabelNode interface {
	labelNode()
}

// TextLabel is a plain string label; the field type is inferred.
type TextLabel struct {
	Text string
}

// FieldLabel is the object form {label, type?, colspan?}.
type FieldLabel struct {
	Text    string
	Type    FieldType // empty when not configured or unknown
	Colspan int
}

// Container describes a section or block: optional metadata plus ordered
// child entries. A Container applied to an array value acts as the item
// schema for every element.
//
// Whether an object label describes a field or a container depends on the
// data it meets, so an object with a non-empty string "label" also carries
// Field, which applies when the data value is a scalar.
type Container struct {
	Title     string
	Order     *float64
	Colspan   int
	Collapsed *bool
	Entries   []LabelEntry
	Field     *FieldLabel
}

// ArraySchema is a label given as a list of item schemas. Only the first
// schema is used.
type ArraySchema struct {
	Item *Container
}

// LabelEntry pairs a data key with its label, in document order.
type LabelEntry struct {
	Key  string
	Node LabelNode
}

func (TextLabel) labelNode()   {}
func (*Container) labelNode()  {}
func (ArraySchema) labelNode() {}

// ParseLabels interprets a label document object.
func ParseLabels(obj *Object) *Container {
	return parseContainer(obj)
}

func parseLabel(v Value) LabelNode {
	switch x := v.(type) {
	case Scalar:
		if s, ok := x.V.(string); ok {
			return TextLabel{Text: s}
		}
	case *Object:
		return parseContainer(x)
	case List:
		if len(x) == 0 {
			return nil
		}
		if first, ok := x[0].(*Object); ok {
			return ArraySchema{Item: parseContainer(first)}
		}
	}
	return nil
}

// fieldLabelText returns the non-blank string "label" of o, if any.
func fieldLabelText(o *Object) (string, bool) {
	v, ok := o.Get("label")
	if !ok {
		return "", false
	}
	text, ok := scalarString(v)
	if !ok || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

func parseFieldLabel(o *Object) FieldLabel {
	fl := FieldLabel{Colspan: DefaultColspan}
	fl.Text, _ = fieldLabelText(o)
	if v, ok := o.Get("type"); ok {
		if s, ok := scalarString(v); ok {
			if t, known := ParseFieldType(s); known {
				fl.Type = t
			}
		}
	}
	if v, ok := o.Get("colspan"); ok {
		fl.Colspan = clampColspan(v, DefaultColspan)
	}
	return fl
}

func parseContainer(o *Object) *Container {
	c := &Container{}
	for _, k := range o.Keys() {
		v, _ := o.Get(k)
		if strings.HasPrefix(k, "_") {
			c.applyMeta(k, v)
			continue
		}
		node := parseLabel(v)
		if node == nil {
			continue
		}
		c.Entries = append(c.Entries, LabelEntry{Key: k, Node: node})
	}
	if _, ok := fieldLabelText(o); ok {
		fl := parseFieldLabel(o)
		c.Field = &fl
	}
	return c
}

func (c *Container) applyMeta(key string, v Value) {
	switch key {
	case keySectionTitle:
		if s, ok := scalarString(v); ok {
			c.Title = s
		}
	case keyBlockTitle:
		// _sectionTitle wins when both are present.
		if s, ok := scalarString(v); ok && c.Title == "" {
			c.Title = s
		}
	case keyOrder:
		if s, ok := v.(Scalar); ok {
			if f, ok := s.V.(float64); ok && !math.IsNaN(f) {
				c.Order = &f
			}
		}
	case keyColspan:
		c.Colspan = clampColspan(v, SectionColspan)
	case keyCollapsed:
		if s, ok := v.(Scalar); ok {
			if b, ok := s.V.(bool); ok {
				c.Collapsed = &b
			}
		}
	}
}

// ClampColspan normalizes a configured colspan: numbers are truncated and
// clamped to [1, MaxColspan]; anything else yields DefaultColspan.
func ClampColspan(raw any) int {
	v, err := FromGo(raw)
	if err != nil {
		return DefaultColspan
	}
	return clampColspan(v, DefaultColspan)
}

func clampColspan(v Value, def int) int {
	s, ok := v.(Scalar)
	if !ok {
		return def
	}
	f, ok := s.V.(float64)
	if !ok || math.IsNaN(f) {
		return def
	}
	switch {
	case f < 1:
		return 1
	case f > MaxColspan:
		return MaxColspan
	}
	return int(f)
}

func scalarString(v Value) (string, bool) {
	s, ok := v.(Scalar)
	if !ok {
		return "", false
	}
	str, ok := s.V.(string)
	return str, ok
}
