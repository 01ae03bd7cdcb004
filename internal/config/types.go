package config

import (
	"fmt"
	"time"
)

// GatewayConfig is the top-level configuration structure for gatewayctl.
// A snapshot is consulted once per start attempt and never mutated afterwards.
type GatewayConfig struct {
	// BinaryPath overrides the managed binary. Only trusted if it exists on disk.
	BinaryPath  string `yaml:"binaryPath,omitempty" toml:"binaryPath,omitempty"`
	DatabaseURL string `yaml:"databaseUrl,omitempty" toml:"databaseUrl,omitempty"`
	Port        int    `yaml:"port,omitempty" toml:"port,omitempty"`
	Password    string `yaml:"password,omitempty" toml:"password,omitempty"`

	// StorageDir is the per-user directory holding the downloaded binary.
	StorageDir string `yaml:"storageDir,omitempty" toml:"storageDir,omitempty"`

	Gateway ArtifactConfig `yaml:"gateway,omitempty" toml:"gateway,omitempty"`
	Startup StartupConfig  `yaml:"startup,omitempty" toml:"startup,omitempty"`
	Viewer  ViewerConfig   `yaml:"viewer,omitempty" toml:"viewer,omitempty"`
}

// ArtifactConfig describes where gateway releases are published.
type ArtifactConfig struct {
	// Version pins a release tag. Empty means "ask the registry for the latest".
	Version      string `yaml:"version,omitempty" toml:"version,omitempty"`
	Registry     string `yaml:"registry,omitempty" toml:"registry,omitempty"`
	Repository   string `yaml:"repository,omitempty" toml:"repository,omitempty"`
	ArtifactBase string `yaml:"artifactBase,omitempty" toml:"artifactBase,omitempty"`
	Retries      int    `yaml:"retries,omitempty" toml:"retries,omitempty"`
}

// StartupConfig tunes readiness detection after the gateway is spawned.
type StartupConfig struct {
	PollInterval Duration `yaml:"pollInterval,omitempty" toml:"pollInterval,omitempty"`
	Timeout      Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	AutoOpen     *bool    `yaml:"autoOpen,omitempty" toml:"autoOpen,omitempty"`
}

// ViewerConfig selects how the studio URL is opened.
type ViewerConfig struct {
	// Command replaces the platform opener, e.g. ["firefox", "--new-tab"].
	Command []string `yaml:"command,omitempty" toml:"command,omitempty"`
}

// ShouldAutoOpen reports whether the viewer opens once the gateway is ready.
func (s StartupConfig) ShouldAutoOpen() bool {
	return s.AutoOpen == nil || *s.AutoOpen
}

// Duration is a time.Duration that reads "200ms" style strings from YAML and TOML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}
