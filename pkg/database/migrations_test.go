package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSQLiteIsIdempotent(t *testing.T) {
	db, err := NewSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, "sqlite"))
	require.NoError(t, Migrate(ctx, db, "sqlite"))

	var tables []string
	require.NoError(t, db.SelectContext(ctx, &tables, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`))
	assert.Subset(t, tables, []string{"deadlines", "events", "quizzes", "schema_version"})

	var versions int
	require.NoError(t, db.GetContext(ctx, &versions, `SELECT COUNT(*) FROM schema_version`))
	assert.Equal(t, 1, versions)
}

func TestMigrateUnknownDriver(t *testing.T) {
	db, err := NewSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, Migrate(context.Background(), db, "mysql"))
}
