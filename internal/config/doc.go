// Package config provides configuration management for gatewayctl.
//
// Configuration is layered. Later sources override earlier ones field by
// field; zero values never override.
//
//  1. Defaults (port 4983, ghcr.io registry, R2 artifact host)
//  2. User configuration (~/.config/gatewayctl/config.yaml)
//  3. Project configuration (./.gatewayctl/config.yaml)
//
// A single file can be given instead with --config, in YAML or TOML.
//
//	binaryPath: /opt/drizzle/drizzle-gateway   # optional manual override
//	databaseUrl: "${DATABASE_URL}"
//	port: 4983
//	password: "${GATEWAY_PASSWORD:-}"
//	gateway:
//	  version: ""          # empty resolves the latest tag from the registry
//	startup:
//	  pollInterval: 200ms
//	  timeout: 10s
//	  autoOpen: true
//	viewer:
//	  command: ["firefox", "--new-tab"]
//
// String settings support ${VAR} and ${VAR:-default} expansion.
package config
