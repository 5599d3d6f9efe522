package database

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "postgres scheme", in: "postgres://u:p@localhost:5432/db", want: "pgx5://u:p@localhost:5432/db"},
		{name: "postgresql scheme", in: "postgresql://localhost/db?sslmode=disable", want: "pgx5://localhost/db?sslmode=disable"},
		{name: "already pgx5", in: "pgx5://localhost/db", want: "pgx5://localhost/db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, migrateURL(tt.in))
		})
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	t.Parallel()

	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	connString, cleanupFunc := SetupTestDBContainer(t, ctx)
	t.Cleanup(cleanupFunc)

	m, err := NewFromConnectionString(connString)
	require.NoError(t, err)
	defer func() { _, _ = m.Close() }()

	fnames, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)

	for i := 1; i <= len(fnames); i++ {
		// step up
		err = m.Steps(i)
		assert.NoError(t, err)

		// step down
		err = m.Steps(-i)
		assert.NoError(t, err)

		// step up again
		err = m.Steps(i)
		assert.NoError(t, err)

		// reset for the next iteration
		err = m.Steps(-i)
		assert.NoError(t, err)
	}

	version, err := MigrateUp(connString, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(len(fnames)), version)

	version, err = MigrateDown(connString, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(len(fnames)-1), version)
}
