// Package persist implements a small unit-of-work persistence layer for the
// parent/child entity model on top of database/sql. SQLite (modernc.org/sqlite)
// is the default engine; Postgres is reached through pgx's database/sql
// driver. Collections configured for orphan removal delete detached children
// on flush with a single batch DELETE.
package persist

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesh-intelligence/orphanage/pkg/types"
)

var sqlOpen = sql.Open

// Backend owns the database handle and the settings every Session forked
// from it shares: dialect, key encoder, logger, statement log and metrics.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dialect  Dialect
	db       *sql.DB

	// encodeKey is chosen on every Attach: keyOverride when set, otherwise
	// the encoder named by Config.KeyEncoding.
	encodeKey   KeyEncoder
	keyOverride KeyEncoder
	logger      *slog.Logger
	statements  *statementLog
	registry    *prometheus.Registry
	metrics     *metrics
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithKeyEncoder overrides the encoder selected by Config.KeyEncoding.
func WithKeyEncoder(enc KeyEncoder) Option {
	return func(b *Backend) {
		b.keyOverride = enc
	}
}

// NewBackend creates a backend. It is not attached; call Attach with a
// Config to open the database.
func NewBackend(opts ...Option) *Backend {
	reg := prometheus.NewRegistry()
	b := &Backend{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		statements: &statementLog{},
		registry:   reg,
		metrics:    newMetrics(reg),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach validates config and opens the database it describes. The schema is
// not touched; call RefreshSchema or EnsureSchema afterwards.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dialect, err := DialectFor(config.Backend)
	if err != nil {
		return err
	}

	dsn := config.DSN
	if config.Backend == types.BackendSQLite {
		dsn = sqliteDSN(config.DBName)
	}

	db, err := sqlOpen(dialect.Driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", config.Backend, err)
	}
	if config.Backend == types.BackendSQLite && config.DBName == types.MemoryDB {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping %s: %w", config.Backend, err)
	}

	b.encodeKey = b.keyOverride
	if b.encodeKey == nil {
		b.encodeKey = KeyEncoderFor(config.GetKeyEncoding())
	}
	b.db = db
	b.config = config
	b.dialect = dialect
	b.statements.reset()
	b.attached = true

	b.logger.Debug("backend attached",
		"backend", config.Backend,
		"key_encoding", config.GetKeyEncoding(),
	)
	return nil
}

// Detach closes the database. Detach is idempotent; after it, operations
// return ErrDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	b.encodeKey = nil
	b.logger.Debug("backend detached")
	return nil
}

// Config returns the configuration passed to Attach.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// Fork returns a new unit of work with an empty identity map.
func (b *Backend) Fork() *Session {
	return newSession(b)
}

// Registry returns the prometheus registry holding the backend's metrics.
func (b *Backend) Registry() *prometheus.Registry {
	return b.registry
}

// Statements returns the statements executed since Attach. The log is only
// kept when Config.Debug is set.
func (b *Backend) Statements() []Statement {
	return b.statements.snapshot()
}

// WriteStatements exports the statement log as JSONL to path.
func (b *Backend) WriteStatements(path string) error {
	return writeStatementsJSONL(path, b.statements.snapshot())
}

// RefreshSchema drops and re-creates every table.
func (b *Backend) RefreshSchema(ctx context.Context) error {
	cn, err := b.handle()
	if err != nil {
		return err
	}
	for _, stmt := range dropDDL {
		if _, err := b.exec(ctx, cn, cn.db, "", stmt); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	return b.createSchema(ctx, cn, false)
}

// EnsureSchema creates missing tables and leaves existing rows alone.
func (b *Backend) EnsureSchema(ctx context.Context) error {
	cn, err := b.handle()
	if err != nil {
		return err
	}
	return b.createSchema(ctx, cn, true)
}

func (b *Backend) createSchema(ctx context.Context, cn conn, ifNotExists bool) error {
	for _, stmt := range schemaDDL {
		if ifNotExists {
			stmt = strings.Replace(stmt, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ", 1)
		}
		if _, err := b.exec(ctx, cn, cn.db, "", stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// SelectAll returns every row of table as column-name maps, ordered by id.
// Returns ErrTableNotFound for names outside the entity model.
func (b *Backend) SelectAll(ctx context.Context, table string) ([]map[string]any, error) {
	if !knownTable(table) {
		return nil, types.ErrTableNotFound
	}
	cn, err := b.handle()
	if err != nil {
		return nil, err
	}

	rows, err := b.query(ctx, cn, cn.db, "", "SELECT * FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading %s columns: %w", table, err)
	}

	results := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		record := make(map[string]any, len(cols))
		for i, col := range cols {
			if raw, ok := values[i].([]byte); ok {
				record[col] = string(raw)
				continue
			}
			record[col] = values[i]
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", table, err)
	}
	return results, nil
}

// conn is the attach-time state one operation works with. It is read once
// under the lock so a concurrent Attach or Detach cannot change it midway.
type conn struct {
	db        *sql.DB
	dialect   Dialect
	debug     bool
	encodeKey KeyEncoder
}

// handle returns the attached state or ErrDetached.
func (b *Backend) handle() (conn, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return conn{}, types.ErrDetached
	}
	return conn{
		db:        b.db,
		dialect:   b.dialect,
		debug:     b.config.Debug,
		encodeKey: b.encodeKey,
	}, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// exec rebinds query for the dialect, runs it, and records it.
func (b *Backend) exec(ctx context.Context, cn conn, q querier, changeSet, query string, args ...any) (sql.Result, error) {
	query = cn.dialect.Rebind(query)
	start := time.Now()
	res, err := q.ExecContext(ctx, query, args...)
	b.record(cn, changeSet, query, args, time.Since(start), err)
	return res, err
}

// query is the row-returning counterpart of exec.
func (b *Backend) query(ctx context.Context, cn conn, q querier, changeSet, query string, args ...any) (*sql.Rows, error) {
	query = cn.dialect.Rebind(query)
	start := time.Now()
	rows, err := q.QueryContext(ctx, query, args...)
	b.record(cn, changeSet, query, args, time.Since(start), err)
	return rows, err
}

func (b *Backend) record(cn conn, changeSet, query string, args []any, took time.Duration, err error) {
	kind := statementKind(query)
	b.metrics.statements.WithLabelValues(kind).Inc()
	if err != nil {
		b.metrics.statementErrors.WithLabelValues(kind).Inc()
	}
	if !cn.debug {
		return
	}
	stmt := Statement{
		ChangeSet: changeSet,
		SQL:       query,
		Params:    append([]any(nil), args...),
		Took:      took,
		At:        time.Now().UTC(),
	}
	if err != nil {
		stmt.Error = err.Error()
	}
	b.statements.append(stmt)
	b.logger.Debug("sql", "change_set", changeSet, "query", query, "params", args, "took", took)
}

func knownTable(name string) bool {
	for _, t := range types.StandardTableNames {
		if t == name {
			return true
		}
	}
	return false
}

// sqliteDSN turns on foreign key enforcement for every connection.
func sqliteDSN(name string) string {
	sep := "?"
	if strings.Contains(name, "?") {
		sep = "&"
	}
	return name + sep + "_pragma=foreign_keys(1)"
}
