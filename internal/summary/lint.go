package summary

import (
	"fmt"
	"sort"
	"strings"
)

// Lint checks a label document without any data and reports entries a
// render pass would silently ignore or reinterpret.
func Lint(labels any) ([]Warning, error) {
	obj, err := LabelObject(labels)
	if err != nil {
		return nil, err
	}
	l := &linter{}
	if obj == nil {
		return nil, nil
	}
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		if strings.HasPrefix(k, "_") {
			l.addf(k, "metadata key at the top level is ignored")
			continue
		}
		switch x := v.(type) {
		case *Object:
			if _, ok := fieldLabelText(x); ok && !hasChildEntries(x) {
				l.addf(k, "top-level entry is a field label; sections must be objects")
				continue
			}
			l.container(x, k)
		default:
			l.addf(k, "top-level entry is not a section object")
		}
	}
	return l.warnings, nil
}

type linter struct {
	warnings []Warning
}

func (l *linter) addf(path, format string, args ...any) {
	l.warnings = append(l.warnings, Warning{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (l *linter) container(o *Object, path string) {
	for _, k := range o.Keys() {
		v, _ := o.Get(k)
		p := path + "." + k
		if strings.HasPrefix(k, "_") {
			l.meta(k, v, p)
			continue
		}
		l.entry(v, p)
	}
}

func (l *linter) meta(key string, v Value, path string) {
	s, isScalar := v.(Scalar)
	switch key {
	case keySectionTitle, keyBlockTitle:
		if _, ok := scalarString(v); !ok {
			l.addf(path, "title must be a string")
		}
	case keyOrder:
		if _, ok := s.V.(float64); !isScalar || !ok {
			l.addf(path, "_order must be a number; entry will sort last")
		}
	case keyColspan:
		l.colspan(v, path)
	case keyCollapsed:
		if _, ok := s.V.(bool); !isScalar || !ok {
			l.addf(path, "_collapsed must be a boolean")
		}
	default:
		l.addf(path, "unknown metadata key")
	}
}

func (l *linter) entry(v Value, path string) {
	switch x := v.(type) {
	case Scalar:
		s, ok := x.V.(string)
		switch {
		case !ok:
			l.addf(path, "label must be a string, object, or array; got %s", stringify(x.V))
		case strings.TrimSpace(s) == "":
			l.addf(path, "empty label")
		}
	case *Object:
		if _, ok := fieldLabelText(x); ok {
			l.field(x, path)
			if hasChildEntries(x) {
				l.addf(path, "field label with extra keys; renders as a field for scalar data and as a block for object data")
			}
			return
		}
		l.container(x, path)
	case List:
		l.list(x, path)
	}
}

func (l *linter) field(o *Object, path string) {
	if v, ok := o.Get("type"); ok {
		s, isString := scalarString(v)
		if _, known := ParseFieldType(s); !isString || !known {
			l.addf(path+".type", "unknown type %s; type will be inferred", stringify(v))
		}
	}
	if v, ok := o.Get("colspan"); ok {
		l.colspan(v, path+".colspan")
	}
}

func (l *linter) colspan(v Value, path string) {
	s, ok := v.(Scalar)
	f, isNum := s.V.(float64)
	switch {
	case !ok || !isNum:
		l.addf(path, "colspan must be a number; default will be used")
	case f < 1 || f > MaxColspan:
		l.addf(path, "colspan %s is outside 1-%d and will be clamped", stringify(f), MaxColspan)
	case f != float64(int(f)):
		l.addf(path, "colspan %s is not a whole number and will be truncated", stringify(f))
	}
}

// list checks an array schema. Only the first element is used as the item
// schema, so differing element shapes are reported.
func (l *linter) list(items List, path string) {
	if len(items) == 0 {
		l.addf(path, "empty array schema")
		return
	}
	first, ok := items[0].(*Object)
	if !ok {
		l.addf(path, "array schema must contain objects")
		return
	}
	want := fieldKeys(first)
	for i, item := range items[1:] {
		o, ok := item.(*Object)
		if !ok || fieldKeys(o) != want {
			l.addf(fmt.Sprintf("%s[%d]", path, i+1), "array schema differs from the first element; only the first schema is used")
		}
	}
	l.container(first, path+"[0]")
}

// hasChildEntries reports whether a field label object also has keys other
// than label, type, colspan and metadata.
func hasChildEntries(o *Object) bool {
	for _, k := range o.Keys() {
		switch {
		case k == "label", k == "type", k == "colspan", strings.HasPrefix(k, "_"):
		default:
			return true
		}
	}
	return false
}

func fieldKeys(o *Object) string {
	var keys []string
	for _, k := range o.Keys() {
		if !strings.HasPrefix(k, "_") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return strings.Join(keys, "\x00")
}
