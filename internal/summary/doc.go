// Package summary renders a review summary from a data document and a label
// document.
//
// The label document decides what is shown. Each top-level label object is a
// section; nested label objects are blocks; strings and {label, type,
// colspan} objects are fields. A label object applied to an array value is
// an item schema, producing one row per element. Keys starting with "_" are
// metadata:
//
//	_sectionTitle, _blockTitle  display title (defaults to the key)
//	_order                      ascending sibling order; unordered entries last
//	_colspan                    section layout weight, 1-12 (default 12)
//	_collapsed                  initial state when sections are collapsible
//
// A node appears only when both documents have it. Sections and blocks with
// no surviving children are dropped. Field types are inferred from the key
// name and value unless the label names one, and values are formatted for
// the US English locale.
package summary
