package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/donation-bot/migrations"
)

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_cards.up.sql":  {Data: []byte("SELECT 2")},
		"m/0001_init.up.sql":   {Data: []byte("SELECT 1")},
		"m/0001_init.down.sql": {Data: []byte("SELECT 0")},
		"m/README.md":          {Data: []byte("docs")},
		"m/nested/0003.up.sql": {Data: []byte("SELECT 3")},
	}

	names, err := ListMigrations(fsys, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.up.sql", "0002_cards.up.sql"}, names)

	_, err = ListMigrations(fsys, "missing")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "0001_init", Version("0001_init.up.sql"))
	assert.Equal(t, "0002_x", Version("dir/0002_x.up.sql"))
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := ListMigrations(migrations.FS, ".")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.up.sql", names[0])

	for _, name := range names {
		down := Version(name) + ".down.sql"
		_, err := migrations.FS.Open(down)
		assert.NoError(t, err, "missing %s", down)
	}
}

func TestNewMigratorValidatesTable(t *testing.T) {
	m, err := NewMigrator(nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, m.table)

	_, err = NewMigrator(nil, "bad; DROP", nil)
	assert.Error(t, err)
}
