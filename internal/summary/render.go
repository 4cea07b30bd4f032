package summary

import (
	"fmt"
	"sort"
	"strings"
)

// Render builds the review summary for a data document and a label
// document. It is a pure function of its inputs: equal inputs always yield
// equal trees, and nothing is cached between calls.
//
// Errors are *MalformedInputError for unparseable or mis-shaped top-level
// input and ErrNoData when the data document is empty.
func Render(data, labels any, opts Options) (*Tree, error) {
	in, err := Normalize(data, labels)
	if err != nil {
		return nil, err
	}
	return in.Render(opts), nil
}

// Render walks the label tree against the data tree. Only keys present in
// both documents produce output, in label order.
func (in *Input) Render(opts Options) *Tree {
	m := &matcher{opts: opts, skip: newSkipSet(opts.SkipKeys)}
	tree := &Tree{Sections: []Section{}}
	if in == nil || in.Labels == nil {
		return tree
	}
	for _, e := range in.Labels.Entries {
		if m.skip.has(e.Key, e.Key) {
			continue
		}
		raw, ok := in.Data.Get(e.Key)
		if !ok {
			continue
		}
		c, ok := e.Node.(*Container)
		if !ok {
			continue
		}
		if s := m.section(e.Key, raw, c); s != nil {
			tree.Sections = append(tree.Sections, *s)
		}
	}
	sort.SliceStable(tree.Sections, func(i, j int) bool {
		return orderLess(tree.Sections[i].Order, tree.Sections[j].Order)
	})
	tree.Warnings = m.warnings
	return tree
}

// matcher holds the per-call state of one render pass.
type matcher struct {
	opts     Options
	skip     skipSet
	warnings []Warning
}

func (m *matcher) section(key string, raw Value, c *Container) *Section {
	s := &Section{
		ID:          key,
		Title:       titleOr(c.Title, key),
		Order:       c.Order,
		Colspan:     SectionColspan,
		Collapsible: m.opts.Collapsible,
		Expanded:    true,
	}
	if c.Colspan > 0 {
		s.Colspan = c.Colspan
	}
	if s.Collapsible {
		s.Expanded = !m.opts.Collapsed
		if c.Collapsed != nil {
			s.Expanded = !*c.Collapsed
		}
	}

	switch d := m.container(raw, key).(type) {
	case *Object:
		s.Fields, s.Blocks = m.children(d, c, key)
	case List:
		if b := m.arrayBlock(key, d, c, key); b != nil {
			s.Blocks = []Block{*b}
		}
	}
	if len(s.Fields) == 0 && len(s.Blocks) == 0 {
		return nil
	}
	return s
}

// children matches the entries of one container against a data object.
// Fields keep label order; blocks are ordered by _order.
func (m *matcher) children(data *Object, label *Container, path string) ([]Field, []Block) {
	var (
		fields []Field
		blocks []Block
	)
	for _, e := range label.Entries {
		p := path + "." + e.Key
		if m.skip.has(e.Key, p) {
			continue
		}
		raw, ok := data.Get(e.Key)
		if !ok {
			continue
		}
		switch l := e.Node.(type) {
		case TextLabel:
			sc, ok := raw.(Scalar)
			if !ok {
				continue
			}
			if f, ok := m.field(e.Key, sc, l); ok {
				fields = append(fields, f)
			}
		case *Container:
			if sc, ok := raw.(Scalar); ok && l.Field != nil {
				if f, ok := m.field(e.Key, sc, l); ok {
					fields = append(fields, f)
				}
				continue
			}
			switch d := m.container(raw, p).(type) {
			case *Object:
				if b := m.block(e.Key, d, l, p); b != nil {
					blocks = append(blocks, *b)
				}
			case List:
				if b := m.arrayBlock(e.Key, d, l, p); b != nil {
					blocks = append(blocks, *b)
				}
			}
		case ArraySchema:
			if d, ok := m.container(raw, p).(List); ok {
				if b := m.arrayBlock(e.Key, d, l.Item, p); b != nil {
					blocks = append(blocks, *b)
				}
			}
		}
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		return orderLess(blocks[i].Order, blocks[j].Order)
	})
	return fields, blocks
}

func (m *matcher) block(key string, data *Object, label *Container, path string) *Block {
	fields, blocks := m.children(data, label, path)
	if len(fields) == 0 && len(blocks) == 0 {
		return nil
	}
	return &Block{
		ID:     key,
		Title:  titleOr(label.Title, key),
		Order:  label.Order,
		Fields: fields,
		Blocks: blocks,
	}
}

// arrayBlock applies one item schema to every element. Rows without any
// matched field are dropped, and the block is dropped when no row remains.
func (m *matcher) arrayBlock(key string, items List, schema *Container, path string) *Block {
	b := &Block{
		ID:      key,
		Title:   titleOr(schema.Title, key),
		Order:   schema.Order,
		IsArray: true,
	}
	for i, item := range items {
		obj, ok := m.container(item, fmt.Sprintf("%s[%d]", path, i)).(*Object)
		if !ok {
			continue
		}
		var fields []Field
		for _, e := range schema.Entries {
			if m.skip.has(e.Key, path+"."+e.Key) {
				continue
			}
			raw, ok := obj.Get(e.Key)
			if !ok {
				continue
			}
			sc, ok := raw.(Scalar)
			if !ok {
				continue
			}
			if f, ok := m.field(e.Key, sc, e.Node); ok {
				fields = append(fields, f)
			}
		}
		if len(fields) == 0 {
			continue
		}
		if b.Columns == nil {
			b.Columns = make([]string, len(fields))
			for j, f := range fields {
				b.Columns[j] = f.Label
			}
		}
		b.Rows = append(b.Rows, Row{Index: i, Fields: fields})
	}
	if len(b.Rows) == 0 {
		return nil
	}
	return b
}

// field emits one leaf for a TextLabel or a Container carrying a field
// label. Other nodes yield nothing.
func (m *matcher) field(key string, sc Scalar, l LabelNode) (Field, bool) {
	f := Field{ID: key, Value: sc.V, Colspan: DefaultColspan}
	switch l := l.(type) {
	case TextLabel:
		f.Label = l.Text
	case *Container:
		if l.Field == nil {
			return Field{}, false
		}
		f.Label = l.Field.Text
		f.Type = l.Field.Type
		f.Colspan = l.Field.Colspan
	default:
		return Field{}, false
	}
	if f.Type == "" {
		f.Type = InferType(key, sc.V)
	}
	f.Display = Format(sc.V, f.Type)
	if m.opts.HideEmptyFields && f.Display == EmptyPlaceholder {
		return Field{}, false
	}
	return f, true
}

// container resolves a data value expected to be an object or array,
// parsing JSON text stored in long-text fields. Text that looks like JSON
// but fails to parse is skipped with a warning; other shapes yield nil.
func (m *matcher) container(raw Value, path string) Value {
	switch d := raw.(type) {
	case *Object, List:
		return d
	case Scalar:
		s, ok := d.V.(string)
		if !ok {
			return nil
		}
		t := strings.TrimSpace(s)
		if t == "" || (t[0] != '{' && t[0] != '[') {
			return nil
		}
		v, err := Parse([]byte(t))
		if err != nil {
			m.warnings = append(m.warnings, Warning{
				Path:    path,
				Message: fmt.Sprintf("skipped malformed nested JSON: %v", err),
			})
			return nil
		}
		return v
	}
	return nil
}

// orderLess sorts explicit _order values ascending; entries without one
// come after all ordered entries. Use with a stable sort.
func orderLess(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return *a < *b
}

func titleOr(title, key string) string {
	if title != "" {
		return title
	}
	return key
}

// skipSet holds Options.SkipKeys split into bare keys and dotted paths.
type skipSet struct {
	keys  map[string]bool
	paths map[string]bool
}

func newSkipSet(entries []string) skipSet {
	s := skipSet{keys: map[string]bool{}, paths: map[string]bool{}}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, ".") {
			s.paths[e] = true
		} else {
			s.keys[e] = true
		}
	}
	return s
}

func (s skipSet) has(key, path string) bool {
	return s.keys[key] || s.paths[path]
}
