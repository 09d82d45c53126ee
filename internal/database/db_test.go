package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN("app", "s3cret", "db.local", "3306", "retreat")
	require.True(t, strings.HasPrefix(dsn, "app:s3cret@tcp(db.local:3306)/retreat?"))
	require.Contains(t, dsn, "parseTime=true")
	require.Contains(t, dsn, "multiStatements=true")
	require.Contains(t, dsn, "clientFoundRows=true")
	require.Contains(t, dsn, "charset=utf8mb4")

	require.True(t, strings.HasPrefix(DSN("app", "", "h", "1", "d"), "app@tcp(h:1)/d?"))
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.Len(t, entries, 6)
	require.Equal(t, "000001_courses.down.sql", entries[0].Name())
}
