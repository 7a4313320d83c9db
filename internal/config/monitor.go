// Package config loads the monitor's JSON configuration. Fields omitted from
// the file retain their defaults, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// MonitorConfig represents the root configuration for the nozzle monitor.
// All fields are optional; the Get* accessors supply defaults for anything
// not present in the JSON.
type MonitorConfig struct {
	// WindowSize is the number of samples per evaluation window. The
	// pre-fitted artifacts were trained on 200-sample windows.
	WindowSize *int `json:"window_size,omitempty"`

	// StateLabels maps cluster ids (as decimal strings, JSON object keys
	// must be strings) to condition names.
	StateLabels map[string]string `json:"state_labels,omitempty"`

	// ReadTimeout bounds each serial read, as a duration string like "1s".
	ReadTimeout *string `json:"read_timeout,omitempty"`

	// ArtifactDir holds scaler.json, pca.json, and kmeans.json.
	ArtifactDir *string `json:"artifact_dir,omitempty"`

	// Serial port params
	BaudRate *int    `json:"baud_rate,omitempty"`
	DataBits *int    `json:"data_bits,omitempty"`
	StopBits *int    `json:"stop_bits,omitempty"`
	Parity   *string `json:"parity,omitempty"`
}

// EmptyMonitorConfig returns a MonitorConfig with all fields unset.
func EmptyMonitorConfig() *MonitorConfig {
	return &MonitorConfig{}
}

// LoadMonitorConfig loads a MonitorConfig from a JSON file. The file must
// have a .json extension and stay under the max file size.
func LoadMonitorConfig(path string) (*MonitorConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
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

	cfg := EmptyMonitorConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *MonitorConfig) Validate() error {
	if c.WindowSize != nil && *c.WindowSize < 2 {
		return fmt.Errorf("window_size must be at least 2, got %d", *c.WindowSize)
	}

	if c.ReadTimeout != nil && *c.ReadTimeout != "" {
		if _, err := time.ParseDuration(*c.ReadTimeout); err != nil {
			return fmt.Errorf("invalid read_timeout '%s': %w", *c.ReadTimeout, err)
		}
	}

	for key := range c.StateLabels {
		if _, err := strconv.Atoi(key); err != nil {
			return fmt.Errorf("state_labels key %q is not a cluster id", key)
		}
	}

	return nil
}

// GetWindowSize returns the window_size value or the default.
func (c *MonitorConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return 200 // default, matches the trained artifacts
	}
	return *c.WindowSize
}

// GetReadTimeout parses and returns the ReadTimeout as a time.Duration.
func (c *MonitorConfig) GetReadTimeout() time.Duration {
	if c.ReadTimeout == nil || *c.ReadTimeout == "" {
		return time.Second // default
	}
	d, err := time.ParseDuration(*c.ReadTimeout)
	if err != nil {
		return time.Second // default on parse error
	}
	return d
}

// GetArtifactDir returns the artifact_dir value or the default.
func (c *MonitorConfig) GetArtifactDir() string {
	if c.ArtifactDir == nil || *c.ArtifactDir == "" {
		return "models"
	}
	return *c.ArtifactDir
}

// GetStateLabels returns the cluster id to condition name mapping, or the
// default {0: Clogged, 1: Unclogged}. Keys that fail Validate never reach
// here.
func (c *MonitorConfig) GetStateLabels() map[int]string {
	if len(c.StateLabels) == 0 {
		return map[int]string{0: "Clogged", 1: "Unclogged"}
	}
	out := make(map[int]string, len(c.StateLabels))
	for key, name := range c.StateLabels {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		out[id] = name
	}
	return out
}

// GetBaudRate returns the baud_rate value or the default.
func (c *MonitorConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return 115200
	}
	return *c.BaudRate
}

// GetDataBits returns the data_bits value or the default.
func (c *MonitorConfig) GetDataBits() int {
	if c.DataBits == nil {
		return 8
	}
	return *c.DataBits
}

// GetStopBits returns the stop_bits value or the default.
func (c *MonitorConfig) GetStopBits() int {
	if c.StopBits == nil {
		return 1
	}
	return *c.StopBits
}

// GetParity returns the parity value or the default.
func (c *MonitorConfig) GetParity() string {
	if c.Parity == nil || *c.Parity == "" {
		return "N"
	}
	return *c.Parity
}
