package criteria

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Format is an encoding a request can be read from.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFromPath guesses the format of a request file from its extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported request file extension %q (want .json, .yaml, .yml or .cue)", filepath.Ext(path))
	}
}

// DecodeFile reads a request from path, picking the decoder by extension.
func DecodeFile(path string) (*SearchRequest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}
	return Decode(data, format, path)
}

// Decode parses data in the given format. name is used in CUE error
// positions and may be empty.
func Decode(data []byte, format Format, name string) (*SearchRequest, error) {
	switch format {
	case FormatJSON:
		return DecodeJSON(data)
	case FormatYAML:
		return DecodeYAML(data)
	case FormatCUE:
		return DecodeCUE(data, name)
	default:
		return nil, fmt.Errorf("unsupported request format %q", format)
	}
}

// DecodeJSON parses a JSON request. Unknown fields are rejected so that a
// misspelled key cannot silently widen a cohort.
func DecodeJSON(data []byte) (*SearchRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var req SearchRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode json request: %w", err)
	}
	return &req, nil
}

// DecodeYAML parses a YAML request.
func DecodeYAML(data []byte) (*SearchRequest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var req SearchRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode yaml request: %w", err)
	}
	return &req, nil
}

// DecodeCUE evaluates a CUE document and decodes the request from its
// top-level `request` field, or from the document root when that field is
// absent. The value must be concrete.
func DecodeCUE(data []byte, name string) (*SearchRequest, error) {
	if name == "" {
		name = "request.cue"
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile cue request: %w", err)
	}
	if field := v.LookupPath(cue.ParsePath("request")); field.Exists() {
		v = field
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("cue request is not concrete: %w", err)
	}
	var req SearchRequest
	if err := v.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode cue request: %w", err)
	}
	return &req, nil
}
