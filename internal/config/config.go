// Package config resolves where shelfmark keeps its data and how it runs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	appDirName      = "shelfmark"
	configFileName  = "config.yaml"
	defaultDBFile   = "shelf.db"
	defaultLogFile  = "actions.csv"
	defaultCatalog  = "catalog.csv"
	defaultLogLevel = "info"
)

// Config holds the resolved runtime configuration.
type Config struct {
	DataDir     string
	DBPath      string
	LogPath     string
	CatalogPath string
	LogLevel    string
}

// fileConfig mirrors config.yaml. Relative paths resolve against the data dir.
type fileConfig struct {
	CatalogPath  string `yaml:"catalog_path"`
	DatabaseFile string `yaml:"database_file"`
	LogFile      string `yaml:"log_file"`
	LogLevel     string `yaml:"log_level"`
}

// GetDataDir resolves the base directory for all shelfmark storage. It checks
// SHELF_DIR first, then XDG paths, and finally falls back to the user's home
// directory.
func GetDataDir() string {
	if explicit := os.Getenv("SHELF_DIR"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), appDirName)
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, appDirName)
}

// GetDBPath returns the default path to the SQLite database file.
func GetDBPath() string {
	return filepath.Join(GetDataDir(), defaultDBFile)
}

// GetLogPath returns the default path to the flat action log.
func GetLogPath() string {
	return filepath.Join(GetDataDir(), defaultLogFile)
}

// Load builds the configuration from defaults, the optional config.yaml in
// the data dir, and environment overrides (SHELF_CATALOG, SHELF_LOG_LEVEL),
// in increasing order of precedence.
func Load() (*Config, error) {
	dataDir := GetDataDir()
	cfg := &Config{
		DataDir:     dataDir,
		DBPath:      filepath.Join(dataDir, defaultDBFile),
		LogPath:     filepath.Join(dataDir, defaultLogFile),
		CatalogPath: filepath.Join(dataDir, defaultCatalog),
		LogLevel:    defaultLogLevel,
	}

	fc, err := readFileConfig(filepath.Join(dataDir, configFileName))
	if err != nil {
		return nil, err
	}
	if fc != nil {
		if fc.CatalogPath != "" {
			cfg.CatalogPath = resolve(dataDir, fc.CatalogPath)
		}
		if fc.DatabaseFile != "" {
			cfg.DBPath = resolve(dataDir, fc.DatabaseFile)
		}
		if fc.LogFile != "" {
			cfg.LogPath = resolve(dataDir, fc.LogFile)
		}
		if fc.LogLevel != "" {
			cfg.LogLevel = fc.LogLevel
		}
	}

	if v := os.Getenv("SHELF_CATALOG"); v != "" {
		cfg.CatalogPath = v
	}
	if v := os.Getenv("SHELF_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

func readFileConfig(path string) (*fileConfig, error) {
	//nolint:gosec // G304: path is derived from the data dir
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &fc, nil
}

func resolve(base, p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
