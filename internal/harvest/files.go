// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Format is a serialization format for reference and paper files.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts "yaml", "yml" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want yaml or json)", s)
}

// FormatFor picks the format from a file extension, defaulting to YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadPapers reads a YAML or JSON list of paper records.
func LoadPapers(path string) ([]types.Paper, error) {
	var papers []types.Paper
	if err := readFile(path, &papers); err != nil {
		return nil, err
	}
	return papers, nil
}

// ReadReferences reads a YAML or JSON list of dataset references.
func ReadReferences(path string) ([]types.DatasetReference, error) {
	var refs []types.DatasetReference
	if err := readFile(path, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// WriteReferences writes refs to w in the given format.
func WriteReferences(w io.Writer, refs []types.DatasetReference, format Format) error {
	if refs == nil {
		refs = []types.DatasetReference{}
	}
	return encode(w, refs, format)
}

// WriteBatch writes a batch result to w in the given format.
func WriteBatch(w io.Writer, batch types.BatchResult, format Format) error {
	return encode(w, batch, format)
}

func encode(w io.Writer, v any, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	}
}

func readFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if FormatFor(path) == FormatJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
