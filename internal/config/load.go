package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is a configuration serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from the file extension. Anything that is
// not .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads, decodes and validates a configuration file.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "failed to read configuration", Err: err}
	}
	cfg, err := Parse(data, FormatForPath(path))
	if err != nil {
		if ce, ok := err.(*ConfigError); ok {
			ce.Path = path
			return nil, ce
		}
		return nil, &ConfigError{Path: path, Message: "invalid configuration", Err: err}
	}
	return cfg, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte, format Format) (*Configuration, error) {
	var cfg Configuration
	if err := decode(data, format, &cfg); err != nil {
		return nil, &ConfigError{Message: "failed to parse configuration", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path in the format chosen by its extension.
func Save(path string, cfg *Configuration) error {
	data, err := Marshal(cfg, FormatForPath(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create configuration directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	return nil
}

// Marshal encodes cfg. JSON output is indented.
func Marshal(cfg *Configuration, format Format) ([]byte, error) {
	if format == FormatYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to encode configuration: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode configuration: %w", err)
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	return append(data, '\n'), nil
}

// decode strictly decodes data into v, rejecting unknown fields.
func decode(data []byte, format Format, v any) error {
	if format == FormatYAML {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}
