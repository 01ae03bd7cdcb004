package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osUserConfigDir = os.UserConfigDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/gatewayctl"
	projectConfigDir = ".gatewayctl"
	configFileName   = "config.yaml"
)

// LoadConfig loads the gatewayctl configuration by layering default, user, and project settings.
func LoadConfig() (GatewayConfig, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional.
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else if _, statErr := os.Stat(userConfigPath); statErr == nil {
		userConfig, err := loadConfigFromFile(userConfigPath)
		if err != nil {
			return GatewayConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
		}
		config = mergeConfigs(config, userConfig)
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else if _, statErr := os.Stat(projectConfigPath); statErr == nil {
		projectConfig, err := loadConfigFromFile(projectConfigPath)
		if err != nil {
			return GatewayConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
		}
		config = mergeConfigs(config, projectConfig)
	}

	return config, config.Validate()
}

// LoadConfigFromPath loads a single configuration file on top of the defaults.
// The format is chosen from the extension: .yaml, .yml or .toml.
func LoadConfigFromPath(path string) (GatewayConfig, error) {
	fileConfig, err := loadConfigFromFile(path)
	if err != nil {
		return GatewayConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	config := mergeConfigs(GetDefaultConfig(), fileConfig)
	return config, config.Validate()
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func loadConfigFromFile(filePath string) (GatewayConfig, error) {
	var config GatewayConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return GatewayConfig{}, err
	}

	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	case ".toml":
		err = toml.Unmarshal(data, &config)
	default:
		return GatewayConfig{}, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return GatewayConfig{}, err
	}

	expandConfigEnv(&config)
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Zero values in
// overlay leave base untouched.
func mergeConfigs(base, overlay GatewayConfig) GatewayConfig {
	merged := base

	if overlay.BinaryPath != "" {
		merged.BinaryPath = overlay.BinaryPath
	}
	if overlay.DatabaseURL != "" {
		merged.DatabaseURL = overlay.DatabaseURL
	}
	if overlay.Port != 0 {
		merged.Port = overlay.Port
	}
	if overlay.Password != "" {
		merged.Password = overlay.Password
	}
	if overlay.StorageDir != "" {
		merged.StorageDir = overlay.StorageDir
	}

	if overlay.Gateway.Version != "" {
		merged.Gateway.Version = overlay.Gateway.Version
	}
	if overlay.Gateway.Registry != "" {
		merged.Gateway.Registry = overlay.Gateway.Registry
	}
	if overlay.Gateway.Repository != "" {
		merged.Gateway.Repository = overlay.Gateway.Repository
	}
	if overlay.Gateway.ArtifactBase != "" {
		merged.Gateway.ArtifactBase = overlay.Gateway.ArtifactBase
	}
	if overlay.Gateway.Retries != 0 {
		merged.Gateway.Retries = overlay.Gateway.Retries
	}

	if overlay.Startup.PollInterval != 0 {
		merged.Startup.PollInterval = overlay.Startup.PollInterval
	}
	if overlay.Startup.Timeout != 0 {
		merged.Startup.Timeout = overlay.Startup.Timeout
	}
	if overlay.Startup.AutoOpen != nil {
		merged.Startup.AutoOpen = overlay.Startup.AutoOpen
	}

	if len(overlay.Viewer.Command) > 0 {
		merged.Viewer.Command = overlay.Viewer.Command
	}

	return merged
}

// Validate rejects settings the gateway could never start with.
func (c GatewayConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if c.Startup.PollInterval < 0 || c.Startup.Timeout < 0 {
		return fmt.Errorf("startup durations must not be negative")
	}
	if c.Gateway.Retries < 0 {
		return fmt.Errorf("gateway.retries must not be negative")
	}
	return nil
}

// expandConfigEnv resolves ${VAR} and ${VAR:-default} in string settings.
func expandConfigEnv(c *GatewayConfig) {
	c.BinaryPath = expandEnv(c.BinaryPath)
	c.DatabaseURL = expandEnv(c.DatabaseURL)
	c.Password = expandEnv(c.Password)
	c.StorageDir = expandEnv(c.StorageDir)
	for i, arg := range c.Viewer.Command {
		c.Viewer.Command[i] = expandEnv(arg)
	}
}

func expandEnv(value string) string {
	if !strings.Contains(value, "$") {
		return value
	}
	return os.Expand(value, func(name string) string {
		key, fallback, hasDefault := strings.Cut(name, ":-")
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		if hasDefault {
			return fallback
		}
		return ""
	})
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
