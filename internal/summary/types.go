package summary

import "strings"

// FieldType selects the formatting rule applied to a field value.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypePhone    FieldType = "phone"
	TypeEmail    FieldType = "email"
	TypeCurrency FieldType = "currency"
	TypeDate     FieldType = "date"
	TypeBoolean  FieldType = "boolean"
	TypeNumber   FieldType = "number"
)

// fieldTypes lists every type a label may name explicitly.
var fieldTypes = map[FieldType]bool{
	TypeText:     true,
	TypePhone:    true,
	TypeEmail:    true,
	TypeCurrency: true,
	TypeDate:     true,
	TypeBoolean:  true,
	TypeNumber:   true,
}

// ParseFieldType returns the FieldType named by s (case-insensitive).
func ParseFieldType(s string) (FieldType, bool) {
	t := FieldType(strings.ToLower(strings.TrimSpace(s)))
	return t, fieldTypes[t]
}

const (
	// EmptyPlaceholder is displayed for null, missing, or empty values.
	EmptyPlaceholder = "—"

	// DefaultColspan is the field layout weight when none is configured.
	DefaultColspan = 6
	// SectionColspan is the section layout weight when none is configured.
	SectionColspan = 12
	// MaxColspan is the width of the layout grid.
	MaxColspan = 12
)

// Options tunes a render pass.
type Options struct {
	// HideEmptyFields drops fields whose display value is EmptyPlaceholder.
	HideEmptyFields bool `json:"hide_empty_fields,omitempty" yaml:"hide_empty_fields"`
	// SkipKeys excludes keys from matching. A bare key matches at any depth;
	// a dotted path ("Step1.Block1.amount") matches exactly one location.
	SkipKeys []string `json:"skip_keys,omitempty" yaml:"skip_keys"`
	// Collapsible marks every section as collapsible by the caller's UI.
	Collapsible bool `json:"collapsible,omitempty" yaml:"collapsible"`
	// Collapsed sets the initial state of collapsible sections.
	Collapsed bool `json:"collapsed,omitempty" yaml:"collapsed"`
}

// Tree is the rendered review summary.
type Tree struct {
	Sections []Section `json:"sections"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Section is a top-level labeled grouping, typically one form step.
type Section struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Order       *float64 `json:"order,omitempty"`
	Colspan     int      `json:"colspan"`
	Collapsible bool     `json:"collapsible"`
	Expanded    bool     `json:"expanded"`
	Fields      []Field  `json:"fields,omitempty"`
	Blocks      []Block  `json:"blocks,omitempty"`
}

// Block is a nested grouping inside a section. Array blocks carry Rows and
// Columns instead of Fields.
type Block struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Order   *float64 `json:"order,omitempty"`
	IsArray bool     `json:"is_array"`
	Fields  []Field  `json:"fields,omitempty"`
	Blocks  []Block  `json:"blocks,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Rows    []Row    `json:"rows,omitempty"`
}

// Row is one element of an array block.
type Row struct {
	Index  int     `json:"index"`
	Fields []Field `json:"fields"`
}

// Field is a single label/value pair ready for display.
type Field struct {
	ID      string    `json:"id"`
	Label   string    `json:"label"`
	Value   any       `json:"value"`
	Type    FieldType `json:"type"`
	Display string    `json:"display"`
	Colspan int       `json:"colspan"`
}

// Warning reports a problem that did not stop the render or lint pass.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Path == "" {
		return w.Message
	}
	return w.Path + ": " + w.Message
}
