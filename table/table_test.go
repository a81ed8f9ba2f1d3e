package table_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stratadb/strata/pkg/storage"
	"github.com/stratadb/strata/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() *table.Frame {
	f := table.NewFrame("g", "x")
	f.Append("a", 1.0)
	f.Append("b", 2.0)
	f.Append("a", 3.0)
	f.Append("c", 4.0)
	f.Append("b", 5.0)
	return f
}

func TestSingleFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine := storage.NewFileSystem()
	u := storage.MustParseURI(filepath.Join(t.TempDir(), "t.ndjson"))
	f := testFrame()

	require.NoError(t, table.Write(ctx, engine, u, f, false, 100))
	got, err := table.Read(ctx, engine, table.New(u, false, []string{"g"}))
	require.NoError(t, err)
	assert.Equal(t, f.Columns, got.Columns)
	assert.Equal(t, f.Rows, got.Rows)
	assert.Equal(t, []string{"g"}, got.Keys)
}

func TestCompositeShardsRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine := storage.NewFileSystem()
	u := storage.MustParseURI(filepath.Join(t.TempDir(), "t"))
	f := testFrame()

	// Batch of two rows forces three shards for five rows.
	require.NoError(t, table.Write(ctx, engine, u, f, true, 2))
	infos, err := engine.List(ctx, u)
	require.NoError(t, err)
	assert.Len(t, infos, 3)

	got, err := table.Read(ctx, engine, table.New(u, true, nil))
	require.NoError(t, err)
	assert.Equal(t, f.Rows, got.Rows)
}

func TestCompositeOverwriteDropsOldShards(t *testing.T) {
	ctx := context.Background()
	engine := storage.NewFileSystem()
	u := storage.MustParseURI(filepath.Join(t.TempDir(), "t"))

	require.NoError(t, table.Write(ctx, engine, u, testFrame(), true, 1))
	small := table.NewFrame("g", "x").Append("z", 9.0)
	require.NoError(t, table.Write(ctx, engine, u, small, true, 1))

	got, err := table.Read(ctx, engine, table.New(u, true, nil))
	require.NoError(t, err)
	assert.Equal(t, small.Rows, got.Rows)
}

func TestEmptyTableKeepsColumns(t *testing.T) {
	ctx := context.Background()
	engine := storage.NewFileSystem()
	u := storage.MustParseURI(filepath.Join(t.TempDir(), "empty.ndjson"))

	require.NoError(t, table.Write(ctx, engine, u, table.NewFrame("a", "b"), false, 10))
	got, err := table.Read(ctx, engine, table.New(u, false, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Columns)
	assert.Zero(t, got.Len())
}

func TestDeleteAndExists(t *testing.T) {
	ctx := context.Background()
	engine := storage.NewFileSystem()
	u := storage.MustParseURI(filepath.Join(t.TempDir(), "t"))
	tab := table.New(u, true, nil)

	ok, err := table.Exists(ctx, engine, tab)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, table.Write(ctx, engine, u, testFrame(), true, 2))
	ok, err = table.Exists(ctx, engine, tab)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, table.Delete(ctx, engine, tab))
	ok, err = table.Exists(ctx, engine, tab)
	require.NoError(t, err)
	assert.False(t, ok)
}
