// Package planfile encodes the exclusions configuration of a term plan as YAML
// or JSON. Decoding is lenient: unknown keys are ignored and missing keys stay
// zero-valued, so any blob the planner UI round-trips is accepted.
package planfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/sma-roadmap-api/internal/models"
)

// Format is the serialisation used for an exclusions blob.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts "yaml", "yml" and "json" in any case. Empty means YAML.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported exclusions format %q", raw)
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "application/yaml"
}

// Exclusions is the persisted exclusions configuration.
type Exclusions struct {
	DayExclusions  []models.DayExclusion  `json:"dayExclusions" yaml:"dayExclusions"`
	WeekExclusions []models.WeekExclusion `json:"weekExclusions" yaml:"weekExclusions"`
}

// Normalize replaces nil slices with empty ones so encoders emit [] rather than null.
func (e Exclusions) Normalize() Exclusions {
	if e.DayExclusions == nil {
		e.DayExclusions = []models.DayExclusion{}
	}
	if e.WeekExclusions == nil {
		e.WeekExclusions = []models.WeekExclusion{}
	}
	return e
}

// Encode serialises the exclusions in the given format.
func Encode(e Exclusions, format Format) ([]byte, error) {
	e = e.Normalize()
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(e, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("json marshal: %w", err)
		}
		return append(out, '\n'), nil
	case FormatYAML:
		buf := &bytes.Buffer{}
		enc := yaml.NewEncoder(buf)
		enc.SetIndent(2)
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("yaml marshal: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("yaml marshal: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported exclusions format %q", format)
	}
}

// Decode parses an exclusions blob. Blank input yields empty exclusions.
func Decode(data []byte, format Format) (Exclusions, error) {
	var e Exclusions
	if len(bytes.TrimSpace(data)) == 0 {
		return e.Normalize(), nil
	}
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &e); err != nil {
			return Exclusions{}, fmt.Errorf("json unmarshal: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &e); err != nil {
			return Exclusions{}, fmt.Errorf("yaml unmarshal: %w", err)
		}
	default:
		return Exclusions{}, fmt.Errorf("unsupported exclusions format %q", format)
	}
	return e.Normalize(), nil
}

// ReadFile decodes a file, choosing the format from its extension.
func ReadFile(path string) (Exclusions, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Exclusions{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Exclusions{}, fmt.Errorf("read exclusions: %w", err)
	}
	return Decode(data, format)
}

// WriteFile encodes to a temp file in the target directory and renames it into
// place, so readers never observe a partial file.
func WriteFile(path string, e Exclusions) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	content, err := Encode(e, format)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".exclusions-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
