package logbook

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the structured text representation of a record.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatJSON, fmt.Errorf("unknown format %q (want json or yaml)", s)
	}
}

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// Ext returns the conventional file extension for the format.
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// FormatForPath infers the text format from a file extension, defaulting to
// JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// MarshalRecord renders the record as structured text. pretty only affects
// JSON; YAML output is always indented.
func MarshalRecord(lb *Logbook, f Format, pretty bool) ([]byte, error) {
	switch f {
	case FormatYAML:
		return yaml.Marshal(lb)
	default:
		if pretty {
			return json.MarshalIndent(lb, "", "  ")
		}
		return json.Marshal(lb)
	}
}

// UnmarshalRecord parses structured text produced by MarshalRecord (or
// written by hand) back into a record.
func UnmarshalRecord(data []byte, f Format) (*Logbook, error) {
	lb := &Logbook{}
	switch f {
	case FormatYAML:
		if err := yaml.Unmarshal(data, lb); err != nil {
			return nil, fmt.Errorf("parse yaml record: %w", err)
		}
	default:
		if err := json.Unmarshal(data, lb); err != nil {
			return nil, fmt.Errorf("parse json record: %w", err)
		}
	}
	return lb, nil
}
