package config

import (
	"path/filepath"
	"time"
)

const (
	DefaultPort         = 4983
	DefaultRegistry     = "https://ghcr.io"
	DefaultRepository   = "drizzle-team/gateway"
	DefaultArtifactBase = "https://pub-e240a4fd7085425baf4a7951e7611520.r2.dev"
	DefaultRetries      = 2

	DefaultPollInterval = 200 * time.Millisecond
	DefaultStartTimeout = 10 * time.Second

	appDirName = "gatewayctl"
)

// GetDefaultConfig returns the configuration used when no file overrides anything.
func GetDefaultConfig() GatewayConfig {
	return GatewayConfig{
		Port:       DefaultPort,
		StorageDir: defaultStorageDir(),
		Gateway: ArtifactConfig{
			Registry:     DefaultRegistry,
			Repository:   DefaultRepository,
			ArtifactBase: DefaultArtifactBase,
			Retries:      DefaultRetries,
		},
		Startup: StartupConfig{
			PollInterval: Duration(DefaultPollInterval),
			Timeout:      Duration(DefaultStartTimeout),
		},
	}
}

func defaultStorageDir() string {
	dir, err := osUserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".", "."+appDirName)
	}
	return filepath.Join(dir, appDirName)
}
