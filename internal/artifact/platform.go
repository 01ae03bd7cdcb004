package artifact

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform is returned for operating systems without a published gateway build.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrUnsupportedArchitecture is returned for CPU architectures without a published gateway build.
	ErrUnsupportedArchitecture = errors.New("unsupported architecture")
)

// Platform holds the OS and architecture tokens used in artifact names.
type Platform struct {
	OS   string // "linux" or "macos"
	Arch string // "x64" or "arm64"
}

// DetectPlatform maps Go's GOOS/GOARCH onto the artifact naming scheme.
func DetectPlatform(goos, goarch string) (Platform, error) {
	var p Platform

	switch goos {
	case "linux":
		p.OS = "linux"
	case "darwin":
		p.OS = "macos"
	case "windows":
		return Platform{}, fmt.Errorf("%w: Windows is not currently supported. Please use Linux or macOS", ErrUnsupportedPlatform)
	default:
		return Platform{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}

	switch goarch {
	case "amd64":
		p.Arch = "x64"
	case "arm64":
		p.Arch = "arm64"
	default:
		return Platform{}, fmt.Errorf("%w: %s", ErrUnsupportedArchitecture, goarch)
	}

	return p, nil
}
