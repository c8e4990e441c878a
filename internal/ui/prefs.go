package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const prefsFile = "ui_prefs.json"

// TablePrefs stores per-table UI preferences.
type TablePrefs struct {
	SortKey       string   `json:"sort_key"`
	SortDesc      bool     `json:"sort_desc"`
	HiddenColumns []string `json:"hidden_columns"`
	ActiveColumn  string   `json:"active_column"`
}

// UIPreferences stores persisted app preferences.
type UIPreferences struct {
	Plans   TablePrefs `json:"plans"`
	HideMap bool       `json:"hide_map"`
}

// DefaultConfigDir returns ~/.tripmate, where config and preferences live.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}
	return filepath.Join(home, ".tripmate"), nil
}

// loadUIPreferences reads preferences from dir. Missing or unreadable files
// give the defaults.
func loadUIPreferences(dir string) UIPreferences {
	if dir == "" {
		return UIPreferences{}
	}
	data, err := os.ReadFile(filepath.Join(dir, prefsFile))
	if err != nil {
		return UIPreferences{}
	}

	var prefs UIPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return UIPreferences{}
	}
	return prefs
}

func saveUIPreferences(dir string, prefs UIPreferences) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create prefs dir: %w", err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prefs: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, prefsFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	return nil
}
