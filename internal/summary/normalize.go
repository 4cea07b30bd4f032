package summary

import (
	"encoding/json"
	"errors"
	"strings"
)

// Wrapper keys probed, in priority order, when an input object carries the
// real document one level down.
var (
	dataWrapperKeys  = []string{"formData", "reviewData"}
	labelWrapperKeys = []string{"labelConfig", "labels"}
)

// Input is the normalized, immutable pair of documents a render pass reads.
type Input struct {
	Data   *Object
	Labels *Container
}

// Normalize parses and unwraps the raw data and label documents. Inputs may
// be JSON text (string, []byte, json.RawMessage), a Value, or generically
// decoded Go data. JSON text whose top level is itself a JSON string is
// decoded once more, as long-text fields store documents that way.
func Normalize(rawData, rawLabels any) (*Input, error) {
	data, err := normalizeData(rawData)
	if err != nil {
		return nil, err
	}
	labels, err := NormalizeLabels(rawLabels)
	if err != nil {
		return nil, err
	}
	return &Input{Data: data, Labels: labels}, nil
}

func normalizeData(raw any) (*Object, error) {
	v, err := toValue(raw, "data")
	if err != nil {
		return nil, err
	}
	v, err = unwrap(v, dataWrapperKeys, "data")
	if err != nil {
		return nil, err
	}
	switch d := v.(type) {
	case nil:
		return nil, ErrNoData
	case *Object:
		if d.Len() == 0 {
			return nil, ErrNoData
		}
		return d, nil
	}
	return nil, malformed("data", errors.New("data document must be a JSON object"))
}

// NormalizeLabels parses and unwraps a label document. An absent document
// yields an empty label tree.
func NormalizeLabels(raw any) (*Container, error) {
	obj, err := LabelObject(raw)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return &Container{}, nil
	}
	return ParseLabels(obj), nil
}

// LabelObject parses and unwraps a label document without interpreting it.
// An absent document yields nil.
func LabelObject(raw any) (*Object, error) {
	v, err := toValue(raw, "labels")
	if err != nil {
		return nil, err
	}
	v, err = unwrap(v, labelWrapperKeys, "labels")
	if err != nil {
		return nil, err
	}
	switch l := v.(type) {
	case nil:
		return nil, nil
	case *Object:
		return l, nil
	}
	return nil, malformed("labels", errors.New("label document must be a JSON object"))
}

// toValue converts any accepted input form to a Value. Null and blank text
// become nil.
func toValue(raw any, path string) (Value, error) {
	var v Value
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return parseText([]byte(x), path)
	case []byte:
		return parseText(x, path)
	case json.RawMessage:
		return parseText(x, path)
	default:
		var err error
		v, err = FromGo(raw)
		if err != nil {
			return nil, malformed(path, err)
		}
	}
	return decodeText(v, path)
}

func parseText(b []byte, path string) (Value, error) {
	if strings.TrimSpace(string(b)) == "" {
		return nil, nil
	}
	v, err := Parse(b)
	if err != nil {
		return nil, malformed(path, err)
	}
	return decodeText(v, path)
}

// decodeText parses a string scalar holding JSON text; other values pass
// through. Null becomes nil.
func decodeText(v Value, path string) (Value, error) {
	s, ok := v.(Scalar)
	if !ok {
		return v, nil
	}
	switch x := s.V.(type) {
	case nil:
		return nil, nil
	case string:
		return parseText([]byte(x), path)
	}
	return v, nil
}

// unwrap returns the first non-null value found under one of keys, or v
// itself when none is present.
func unwrap(v Value, keys []string, path string) (Value, error) {
	obj, ok := v.(*Object)
	if !ok {
		return v, nil
	}
	for _, k := range keys {
		inner, ok := obj.Get(k)
		if !ok || isNull(inner) {
			continue
		}
		return decodeText(inner, path+"."+k)
	}
	return v, nil
}

func isNull(v Value) bool {
	s, ok := v.(Scalar)
	return v == nil || (ok && s.V == nil)
}
