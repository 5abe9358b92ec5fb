// Shared helpers for orphanage CLI commands.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mesh-intelligence/orphanage/internal/paths"
	"github.com/mesh-intelligence/orphanage/internal/persist"
	"github.com/mesh-intelligence/orphanage/pkg/types"
)

// validTableNamesStr is a comma-separated list of valid table names for error output.
var validTableNamesStr = strings.Join(types.StandardTableNames, ", ")

// backendConfig merges flags over the loaded config.
func backendConfig(keyEncoding string) (types.Config, error) {
	c := types.Config{
		Backend:     cfg.GetString(cfgKeyBackend),
		DSN:         cfg.GetString(cfgKeyDSN),
		Debug:       cfg.GetBool(cfgKeyDebug),
		KeyEncoding: cfg.GetString(cfgKeyKeyEncoding),
	}
	if flagBackend != "" {
		c.Backend = flagBackend
	}
	if flagDSN != "" {
		c.DSN = flagDSN
	}
	if flagDebug {
		c.Debug = true
	}
	if keyEncoding != "" {
		c.KeyEncoding = keyEncoding
	}

	if c.Backend == types.BackendSQLite {
		db, err := paths.ResolveDB(flagDB, cfg.GetString(cfgKeyDB))
		if err != nil {
			return types.Config{}, fmt.Errorf("resolve db: %w", err)
		}
		c.DBName = db
	}
	return c, c.Validate()
}

// newLogger returns a text logger on w at Debug when debug is set, Info otherwise.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// attachBackend builds a backend from config and attaches it. The caller must
// defer backend.Detach().
func attachBackend(ctx context.Context, c types.Config, logger *slog.Logger) (*persist.Backend, error) {
	backend := persist.NewBackend(persist.WithLogger(logger))
	if err := backend.Attach(ctx, c); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	return backend, nil
}
