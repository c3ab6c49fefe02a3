package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactName is the file the trained model is persisted under inside
// the model directory.
const ArtifactName = "demand_model.json"

// Save writes the model artifact (weights, encoding, feature list,
// metrics) atomically under dir.
func Save(m *Model, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("model: create dir: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("model: marshal artifact: %w", err)
	}

	path := filepath.Join(dir, ArtifactName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("model: write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("model: replace artifact: %w", err)
	}
	return nil
}

// Load reads a model artifact from dir and validates that the weight
// vector matches the embedded zone encoding.
func Load(dir string) (*Model, error) {
	data, err := os.ReadFile(filepath.Join(dir, ArtifactName))
	if err != nil {
		return nil, fmt.Errorf("model: read artifact: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("model: decode artifact: %w", err)
	}
	if m.Encoding == nil || m.Encoding.Len() == 0 {
		return nil, fmt.Errorf("model: artifact has no zone encoding")
	}
	if want := dims(m.Encoding.Len()); len(m.Weights) != want {
		return nil, fmt.Errorf("model: artifact weights length %d does not match encoding (want %d)",
			len(m.Weights), want)
	}
	return &m, nil
}
