// Package config loads the dashboard's JSON configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pitwall-data/laptime.report/internal/units"
)

// DashboardConfig holds optional dashboard settings. Pointer fields
// distinguish "omitted" from "set to the zero value", so partial configs are
// safe: anything not present in the JSON falls back to its Get* default.
type DashboardConfig struct {
	Listen *string `json:"listen,omitempty"`
	DBPath *string `json:"db_path,omitempty"`
	Units  *string `json:"units,omitempty"`

	// TeamColors overrides entries of the built-in team colour table,
	// keyed by team name, values are hex colours.
	TeamColors map[string]string `json:"team_colors,omitempty"`
}

// EmptyDashboardConfig returns a DashboardConfig with all fields unset.
func EmptyDashboardConfig() *DashboardConfig {
	return &DashboardConfig{}
}

// LoadDashboardConfig loads a DashboardConfig from a JSON file. The file must
// carry a .json extension and stay under the max file size. Fields omitted
// from the JSON retain their defaults.
func LoadDashboardConfig(path string) (*DashboardConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDashboardConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *DashboardConfig) Validate() error {
	if c.Units != nil && !units.IsValid(*c.Units) {
		return fmt.Errorf("invalid units %q, valid values: %s", *c.Units, units.GetValidUnitsString())
	}
	for team, color := range c.TeamColors {
		if len(color) != 7 || color[0] != '#' {
			return fmt.Errorf("team %q: colour must be a #RRGGBB hex value, got %q", team, color)
		}
	}
	return nil
}

// GetListen returns the listen address, defaulting to :8080.
func (c *DashboardConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":8080"
	}
	return *c.Listen
}

// GetDBPath returns the sqlite database path, defaulting to session_data.db.
func (c *DashboardConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "session_data.db"
	}
	return *c.DBPath
}

// GetUnits returns the display speed units, defaulting to km/h.
func (c *DashboardConfig) GetUnits() string {
	if c.Units == nil || *c.Units == "" {
		return units.KPH
	}
	return *c.Units
}
