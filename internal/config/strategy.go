package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"marksix-lab/internal/domain"
)

// ErrStrategyFormat is returned for strategy files that are neither JSON nor YAML.
var ErrStrategyFormat = errors.New("unsupported strategy format")

// LoadStrategy reads a strategy config. The format follows the file
// extension: .json, .yaml or .yml.
func LoadStrategy(path string) (domain.StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.StrategyConfig{}, fmt.Errorf("read strategy file: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	cfg, err := ParseStrategy(data, format)
	if err != nil {
		return domain.StrategyConfig{}, fmt.Errorf("strategy %s: %w", path, err)
	}
	return cfg, nil
}

// ParseStrategy decodes a strategy config in the given format ("json",
// "yaml" or "yml").
func ParseStrategy(data []byte, format string) (domain.StrategyConfig, error) {
	var cfg domain.StrategyConfig
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("decode json: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return cfg, fmt.Errorf("%w: %q", ErrStrategyFormat, format)
	}
	return cfg, nil
}
