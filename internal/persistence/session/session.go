package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"prospector.ai/internal/game"
	"prospector.ai/internal/tuning"
)

const (
	manifestFile = "session.json"
	tuningFile   = "tuning.yaml"
)

// Manifest is written once per session, before the first turn. Together
// with the effective tuning it is enough to replay the session from turn 0.
type Manifest struct {
	Session   string    `json:"session"`
	Bot       string    `json:"bot"`
	StartedAt string    `json:"started_at"`
	Init      game.Init `json:"init"`
}

func Dir(dataDir, id string) string {
	return filepath.Join(dataDir, "sessions", id)
}

func WriteManifest(dir string, m Manifest, t tuning.Tuning) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), b, 0o644); err != nil {
		return err
	}
	return tuning.Save(filepath.Join(dir, tuningFile), t)
}

func ReadManifest(dir string) (Manifest, tuning.Tuning, error) {
	var m Manifest
	b, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return m, tuning.Tuning{}, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, tuning.Tuning{}, fmt.Errorf("%s: %w", manifestFile, err)
	}
	t, err := tuning.Load(filepath.Join(dir, tuningFile))
	if err != nil {
		return m, t, err
	}
	return m, t, nil
}

// List returns the session ids under dataDir, sorted.
func List(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dataDir, "sessions"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
