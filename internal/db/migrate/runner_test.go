package migrate

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebridge/internal/db"
)

func TestRunRejectsMissingDSN(t *testing.T) {
	err := Run("", Up)
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestRunRejectsUnknownDirection(t *testing.T) {
	err := Run("postgres://localhost/carebridge", Direction("sideways"))
	assert.ErrorContains(t, err, "direction must be up or down")
}

func TestMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(db.MigrationFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(db.MigrationFS, "migrations/*.down.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
