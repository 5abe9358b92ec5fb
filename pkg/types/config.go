package types

import "errors"

// Config holds backend selection and parameters for Backend.Attach.
type Config struct {
	Backend     string `json:"backend" yaml:"backend"`
	DBName      string `json:"db_name" yaml:"db_name"`
	DSN         string `json:"dsn" yaml:"dsn"`
	Debug       bool   `json:"debug" yaml:"debug"`
	KeyEncoding string `json:"key_encoding" yaml:"key_encoding"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// MemoryDB is the SQLite database name for a private in-memory store.
const MemoryDB = ":memory:"

// Key encodings for the orphan batch delete. KeyEncodingValuer converts keys
// through driver.Valuer; KeyEncodingString formats them with fmt.Sprint and
// exists to reproduce the stringification defect.
const (
	KeyEncodingValuer = "valuer"
	KeyEncodingString = "string"
)

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrDBNameEmpty        = errors.New("sqlite db name must not be empty")
	ErrDSNEmpty           = errors.New("postgres dsn must not be empty")
	ErrKeyEncodingUnknown = errors.New("unknown key encoding")
)

var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendPostgres: true,
}

var knownKeyEncodings = map[string]bool{
	"":                true,
	KeyEncodingValuer: true,
	KeyEncodingString: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.Backend {
	case BackendSQLite:
		if c.DBName == "" {
			return ErrDBNameEmpty
		}
	case BackendPostgres:
		if c.DSN == "" {
			return ErrDSNEmpty
		}
	}
	if !knownKeyEncodings[c.KeyEncoding] {
		return ErrKeyEncodingUnknown
	}
	return nil
}

// GetKeyEncoding returns the key encoding, defaulting to KeyEncodingValuer.
func (c Config) GetKeyEncoding() string {
	if c.KeyEncoding == "" {
		return KeyEncodingValuer
	}
	return c.KeyEncoding
}
