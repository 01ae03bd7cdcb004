package artifact

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"gatewayctl/internal/config"
	"gatewayctl/internal/httpclient"
	"gatewayctl/pkg/logging"

	"github.com/hashicorp/go-retryablehttp"
)

const subsystem = "Artifact"

// VersionSource yields the release tag to download.
type VersionSource interface {
	LatestVersion(ctx context.Context) (string, error)
}

// Resolver determines the download URL of the gateway binary for this machine.
type Resolver struct {
	goos          string
	goarch        string
	artifactBase  string
	pinnedVersion string
	versions      VersionSource
}

// NewResolver builds a resolver from the artifact settings. client may be nil.
func NewResolver(cfg config.ArtifactConfig, client *retryablehttp.Client) *Resolver {
	if client == nil {
		client = httpclient.New(cfg.Retries)
	}
	return &Resolver{
		goos:          runtime.GOOS,
		goarch:        runtime.GOARCH,
		artifactBase:  cfg.ArtifactBase,
		pinnedVersion: cfg.Version,
		versions:      NewRegistryClient(cfg.Registry, cfg.Repository, client),
	}
}

// WithPlatform overrides the detected GOOS/GOARCH.
func (r *Resolver) WithPlatform(goos, goarch string) *Resolver {
	r.goos = goos
	r.goarch = goarch
	return r
}

// WithVersionSource replaces the registry lookup.
func (r *Resolver) WithVersionSource(src VersionSource) *Resolver {
	r.versions = src
	return r
}

// ResolveDownloadURL returns the artifact URL for the current platform.
// Platform checks happen before any network access.
func (r *Resolver) ResolveDownloadURL(ctx context.Context) (string, error) {
	platform, err := DetectPlatform(r.goos, r.goarch)
	if err != nil {
		return "", err
	}

	version := r.Version(ctx)
	downloadURL := BuildURL(r.artifactBase, version, platform)
	logging.Debug(subsystem, "Resolved download URL %s", downloadURL)
	return downloadURL, nil
}

// Version returns the pinned version, or asks the registry for the latest.
// Registry failures degrade to LatestTag.
func (r *Resolver) Version(ctx context.Context) string {
	if r.pinnedVersion != "" {
		return r.pinnedVersion
	}
	if r.versions == nil {
		return LatestTag
	}

	version, err := r.versions.LatestVersion(ctx)
	if err != nil {
		logging.Warn(subsystem, "Could not resolve latest gateway version, using %q: %v", LatestTag, err)
		return LatestTag
	}
	if version == "" {
		return LatestTag
	}
	logging.Info(subsystem, "Latest gateway version is %s", version)
	return version
}

// BuildURL formats <base>/drizzle-gateway-<version>-<os>-<arch>.
func BuildURL(base, version string, p Platform) string {
	return fmt.Sprintf("%s/drizzle-gateway-%s-%s-%s", strings.TrimRight(base, "/"), version, p.OS, p.Arch)
}
