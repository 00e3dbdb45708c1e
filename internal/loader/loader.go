// Package loader reads and writes the documents exchanged with the
// persistence and analytics collaborators: organisms, usage patterns and
// ecosystem feedback.
//
// Three input formats are accepted, chosen by file extension:
//
//	.json         JSON
//	.yaml, .yml   YAML
//	.cue          CUE (must evaluate to a concrete value)
//
// Every format is first reduced to an ir.IRValue so that number handling
// and key validation are identical regardless of the source format.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/morphic/internal/ir"
)

// Format identifies a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// ErrUnsupportedFormat is returned for files whose extension is not one of
// the recognised formats.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ReadValue reads the file at path and decodes it into an IRValue.
func ReadValue(path string) (ir.IRValue, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := Decode(data, format, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Decode parses data in the given format. filename is used only for CUE
// error positions and may be empty.
func Decode(data []byte, format Format, filename string) (ir.IRValue, error) {
	switch format {
	case FormatJSON:
		return ir.UnmarshalIRValue(data)
	case FormatYAML:
		return decodeYAML(data)
	case FormatCUE:
		return decodeCUE(data, filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func decodeYAML(data []byte) (ir.IRValue, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return ir.FromAny(raw)
}

// decodeCUE evaluates a standalone CUE file and exports it as JSON, which
// keeps integer and float handling on the same path as JSON input.
func decodeCUE(data []byte, filename string) (ir.IRValue, error) {
	ctx := cuecontext.New()

	var opts []cue.BuildOption
	if filename != "" {
		opts = append(opts, cue.Filename(filename))
	}
	v := ctx.CompileBytes(data, opts...)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE value is not concrete: %w", err)
	}

	exported, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("exporting CUE: %w", err)
	}
	return ir.UnmarshalIRValue(exported)
}

// LoadOrganism reads an organism document. The reserved generation and
// mutation_history keys are split out of the graph.
func LoadOrganism(path string) (*ir.Organism, error) {
	v, err := ReadValue(path)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("%s: organism must be an object, got %s", path, ir.KindOf(v))
	}
	org, err := ir.DecodeOrganism(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return org, nil
}

// LoadPatterns reads a usage-pattern document. The document is either a
// list of patterns or an object with a "patterns" list.
func LoadPatterns(path string) ([]ir.UsagePattern, error) {
	v, err := ReadValue(path)
	if err != nil {
		return nil, err
	}
	if obj, ok := v.(ir.IRObject); ok {
		list, present := obj["patterns"]
		if !present || len(obj) != 1 {
			return nil, fmt.Errorf("%s: expected a list or an object with only a \"patterns\" key", path)
		}
		v = list
	}
	if _, ok := v.(ir.IRArray); !ok {
		return nil, fmt.Errorf("%s: patterns must be a list, got %s", path, ir.KindOf(v))
	}

	var patterns []ir.UsagePattern
	if err := convert(v, &patterns); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return patterns, nil
}

// LoadFeedback reads an ecosystem feedback document.
func LoadFeedback(path string) (ir.EcosystemFeedback, error) {
	v, err := ReadValue(path)
	if err != nil {
		return ir.EcosystemFeedback{}, err
	}
	if _, ok := v.(ir.IRObject); !ok {
		return ir.EcosystemFeedback{}, fmt.Errorf("%s: feedback must be an object, got %s", path, ir.KindOf(v))
	}

	var fb ir.EcosystemFeedback
	if err := convert(v, &fb); err != nil {
		return ir.EcosystemFeedback{}, fmt.Errorf("%s: %w", path, err)
	}
	return fb, nil
}

// convert decodes an IRValue into a typed struct, rejecting unknown fields.
func convert(v ir.IRValue, out any) error {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// WriteOrganism writes the organism document to path as YAML or JSON,
// depending on the extension. CUE output is not supported.
func WriteOrganism(path string, org *ir.Organism) error {
	data, err := EncodeOrganism(org, path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EncodeOrganism renders the organism document in the format implied by
// path's extension.
func EncodeOrganism(org *ir.Organism, path string) ([]byte, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	doc := org.Document()

	switch format {
	case FormatJSON:
		compact, err := ir.MarshalCanonical(doc)
		if err != nil {
			return nil, err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, compact, "", "  "); err != nil {
			return nil, err
		}
		out.WriteByte('\n')
		return out.Bytes(), nil
	case FormatYAML:
		return yaml.Marshal(ir.ToAny(doc))
	default:
		return nil, fmt.Errorf("%w for writing: %s", ErrUnsupportedFormat, format)
	}
}
