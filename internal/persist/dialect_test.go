package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/orphanage/pkg/types"
)

func TestDialectRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		query   string
		want    string
	}{
		{
			name:    "sqlite keeps question marks",
			dialect: SQLiteDialect,
			query:   "DELETE FROM child_entity WHERE id IN (?, ?)",
			want:    "DELETE FROM child_entity WHERE id IN (?, ?)",
		},
		{
			name:    "postgres numbers placeholders",
			dialect: PostgresDialect,
			query:   "DELETE FROM child_entity WHERE id IN (?, ?, ?)",
			want:    "DELETE FROM child_entity WHERE id IN ($1, $2, $3)",
		},
		{
			name:    "postgres without placeholders",
			dialect: PostgresDialect,
			query:   "SELECT * FROM child_entity ORDER BY id",
			want:    "SELECT * FROM child_entity ORDER BY id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.Rebind(tt.query))
		})
	}
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor(types.BackendSQLite)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Driver)

	d, err = DialectFor(types.BackendPostgres)
	require.NoError(t, err)
	assert.Equal(t, "pgx", d.Driver)

	_, err = DialectFor("mysql")
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?, ?, ?", Placeholders(3))
}
