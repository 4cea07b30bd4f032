// Package labeldoc reads and writes label documents in the formats authors
// keep them in. Every format is reduced to canonical JSON: compact, with
// keys in authored order, which is what the store persists and digests.
package labeldoc

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/reviewsummary/internal/summary"
)

// Format names a source encoding for a label document.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	CUE  Format = "cue"
)

// ErrUnknownFormat is returned for file extensions or format names that are
// not JSON, YAML or CUE.
var ErrUnknownFormat = errors.New("unknown label document format")

// ParseFormat resolves a format name such as "yml" or "JSON".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "json", "":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "cue":
		return CUE, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatFromPath picks the format from a file extension. Files without an
// extension are read as JSON.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Decode parses src into a document value, keeping key order.
func Decode(src []byte, f Format) (summary.Value, error) {
	switch f {
	case JSON:
		v, err := summary.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		return v, nil
	case YAML:
		return decodeYAML(src)
	case CUE:
		return decodeCUE(src)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Canonical converts src to canonical JSON text.
func Canonical(src []byte, f Format) ([]byte, error) {
	v, err := Decode(src, f)
	if err != nil {
		return nil, err
	}
	return summary.Marshal(v)
}

// Encode writes v in format f. JSON output is indented; CUE is input only.
func Encode(v summary.Value, f Format) ([]byte, error) {
	switch f {
	case JSON:
		compact, err := summary.Marshal(v)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, compact, "", "  "); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case YAML:
		node, err := toYAMLNode(v)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return nil, fmt.Errorf("encoding YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CUE:
		return nil, fmt.Errorf("%w: cue output is not supported", ErrUnknownFormat)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Digest returns the hex SHA-256 of canonical document text.
func Digest(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Load reads the file at path and returns its canonical JSON.
func Load(path string) ([]byte, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading label document: %w", err)
	}
	out, err := Canonical(src, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func decodeCUE(src []byte) (summary.Value, error) {
	v := cuecontext.New().CompileBytes(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating CUE: %w", err)
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("exporting CUE: %w", err)
	}
	return summary.Parse(b)
}
