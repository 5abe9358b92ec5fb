// Config loading for the orphanage CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/orphanage/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "ORPHANAGE"

	cfgKeyBackend     = "backend"
	cfgKeyDB          = "db_name"
	cfgKeyDSN         = "dsn"
	cfgKeyDebug       = "debug"
	cfgKeyKeyEncoding = "key_encoding"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Orphanage CLI configuration

# Backend selection: sqlite or postgres
backend: sqlite

# SQLite database (":memory:" or a file path). Precedence: --db flag,
# this value, ORPHANAGE_DB, then ":memory:".
# db_name: orphanage.db

# Postgres connection string, used when backend is postgres
# dsn: postgres://localhost/orphanage?sslmode=disable

# Key encoding for the orphan batch delete: valuer or string
key_encoding: valuer
`

// loadConfig reads config.yaml from the config directory using Viper. It
// creates the directory and a default config.yaml on first run. A missing
// config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyKeyEncoding, types.KeyEncodingValuer)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
