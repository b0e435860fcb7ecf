package story

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a save file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const (
	saveFormatTag = "gamegirl-save"
	saveSchema    = 1
)

// Ext is the file extension written for f.
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// ParseFormat accepts "json" or "yaml"/"yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown save format %q", s)
}

// FormatFromPath picks the format from a file extension. Legacy .gsg saves
// are JSON.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".gsg":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

type envelope struct {
	Format string    `json:"format" yaml:"format"`
	Schema int       `json:"schema" yaml:"schema"`
	Memory *Snapshot `json:"memory" yaml:"memory"`
}

// Encode serializes m as a save file.
func Encode(f Format, m *Memory) ([]byte, error) {
	snap := m.Snapshot()
	env := envelope{Format: saveFormatTag, Schema: saveSchema, Memory: &snap}
	switch f {
	case FormatJSON:
		return json.MarshalIndent(env, "", "  ")
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(env); err != nil {
			return nil, fmt.Errorf("encode yaml save: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml save: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown save format %q", f)
}

// Decode parses a save file into a new Memory. Any structural problem is
// reported as ErrMalformedSave.
func Decode(f Format, data []byte) (*Memory, error) {
	var env envelope
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSave, err)
		}
		if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: trailing data", ErrMalformedSave)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSave, err)
		}
		var extra yaml.Node
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: trailing data", ErrMalformedSave)
		}
	default:
		return nil, fmt.Errorf("unknown save format %q", f)
	}

	if env.Format != saveFormatTag {
		return nil, fmt.Errorf("%w: format %q", ErrMalformedSave, env.Format)
	}
	if env.Schema != saveSchema {
		return nil, fmt.Errorf("%w: unsupported schema %d", ErrMalformedSave, env.Schema)
	}
	if env.Memory == nil {
		return nil, fmt.Errorf("%w: no memory", ErrMalformedSave)
	}
	return Restore(*env.Memory)
}
