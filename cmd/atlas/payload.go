package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alfredjeanlab/atlasgraph/internal/normalize"
)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// readPayload decodes a JSON or YAML payload file, chosen by extension.
func readPayload(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	if isYAML(path) {
		return normalize.DecodeYAML(data)
	}
	return normalize.Decode(data)
}

// readRawPayload returns the payload file as a JSON document. YAML files are
// converted; JSON files are passed through after validation.
func readRawPayload(path string) (json.RawMessage, error) {
	if isYAML(path) {
		v, err := readPayload(path)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("converting %s to JSON: %w", path, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s: invalid JSON", path)
	}
	return data, nil
}
