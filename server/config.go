package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the dev server configuration. Values come from the environment
// (optionally seeded from a .env file) and may be overridden by flags.
type Config struct {
	Port        uint16 `json:"port"`
	ProjectsDir string `json:"projectsDir"`
	CdnOrigin   string `json:"cdnOrigin"`
	LogLevel    string `json:"logLevel"`
	CORSOrigins string `json:"corsOrigins"`
}

// LoadConfig reads the configuration from the environment. A .env file in
// the working directory is loaded first if present.
func LoadConfig() (*Config, error) {
	// ignore the error: a missing .env file is fine
	godotenv.Load()

	cfg := &Config{
		Port:        8788,
		ProjectsDir: "projects",
		CdnOrigin:   "https://esm.sh",
		LogLevel:    "info",
		CORSOrigins: "*",
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("fail to parse PORT: %w", err)
		}
		cfg.Port = uint16(port)
	}
	if v := os.Getenv("PROJECTS_DIR"); v != "" {
		cfg.ProjectsDir = v
	}
	if v := os.Getenv("CDN_ORIGIN"); v != "" {
		cfg.CdnOrigin = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = v
	}

	projectsDir, err := filepath.Abs(cfg.ProjectsDir)
	if err != nil {
		return nil, fmt.Errorf("fail to get absolute path of the projects directory: %w", err)
	}
	cfg.ProjectsDir = projectsDir
	return cfg, nil
}
