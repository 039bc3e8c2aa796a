// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all server configuration.
type Config struct {
	// FTP server
	Hostname     string
	Port         int
	PublicIP     string
	PassivePorts string // e.g. "50000-50100", empty = kernel-assigned

	// Metrics
	MetricsAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// Google Drive
	CredentialsFile string // service account JSON, or OAuth client secret JSON
	TokenFile       string // cached OAuth token (required when CredentialsFile is an OAuth client)
	RootFolderID    string // Drive folder presented as "/" ("root" = My Drive)

	// Uploads
	StagingDir string
	UploadMode string // "background" or "sync"

	// FTP users
	UsersFile   string // JSON file with bcrypt password hashes
	FTPUser     string // optional single user via env
	FTPPassword string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Hostname:        envOr("FTP_HOSTNAME", ""),
		Port:            envInt("FTP_PORT", 2121),
		PublicIP:        envOr("FTP_PUBLIC_IP", ""),
		PassivePorts:    envOr("FTP_PASSIVE_PORTS", ""),
		MetricsAddr:     envOr("METRICS_ADDR", ":9090"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogFormat:       envOr("LOG_FORMAT", "json"),
		CredentialsFile: envOr("DRIVE_CREDENTIALS_FILE", ""),
		TokenFile:       envOr("DRIVE_TOKEN_FILE", ""),
		RootFolderID:    envOr("DRIVE_ROOT_FOLDER_ID", "root"),
		StagingDir:      envOr("STAGING_DIR", os.TempDir()),
		UploadMode:      envOr("UPLOAD_MODE", "background"),
		UsersFile:       envOr("FTP_USERS_FILE", ""),
		FTPUser:         envOr("FTP_USER", ""),
		FTPPassword:     envOr("FTP_PASSWORD", ""),
	}

	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("DRIVE_CREDENTIALS_FILE is required")
	}
	if cfg.UploadMode != "background" && cfg.UploadMode != "sync" {
		return nil, fmt.Errorf("UPLOAD_MODE must be \"background\" or \"sync\", got %q", cfg.UploadMode)
	}
	if cfg.UsersFile == "" && cfg.FTPUser == "" {
		return nil, fmt.Errorf("either FTP_USERS_FILE or FTP_USER/FTP_PASSWORD is required")
	}

	return cfg, nil
}

// DeferUploads reports whether uploads run as background transfers.
func (c *Config) DeferUploads() bool {
	return c.UploadMode == "background"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
