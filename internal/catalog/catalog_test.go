package catalog

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndLookup(t *testing.T) {
	db := openTestDB(t)

	ok, err := db.IsConverted("abc123")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.RecordConversion("abc123", "/library/set", "/songs/set/set.sm", 3))

	ok, err = db.IsConverted("abc123")
	require.NoError(t, err)
	assert.True(t, ok)

	c, err := db.GetConversion("abc123")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "/library/set", c.SourceDir)
	assert.Equal(t, "/songs/set/set.sm", c.OutputPath)
	assert.EqualValues(t, 3, c.ChartCount)
	assert.False(t, c.ConvertedAt.IsZero())
}

func TestRecordUpserts(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.RecordConversion("hash", "/a", "/out/a.sm", 1))
	require.NoError(t, db.RecordConversion("hash", "/b", "/out/b.sm", 2))

	c, err := db.GetConversion("hash")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "/b", c.SourceDir)
	assert.EqualValues(t, 2, c.ChartCount)
}

func TestGetUnknownHash(t *testing.T) {
	db := openTestDB(t)
	c, err := db.GetConversion("nope")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	db, err := Open(dir, logger)
	require.NoError(t, err)
	require.NoError(t, db.RecordConversion("persist", "/a", "/out/a.sm", 1))
	require.NoError(t, db.Close())

	db, err = Open(dir, logger)
	require.NoError(t, err)
	defer db.Close()
	ok, err := db.IsConverted("persist")
	require.NoError(t, err)
	assert.True(t, ok)
}
