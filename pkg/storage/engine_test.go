package storage

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine := NewFileSystem()
	u := MustParseURI(filepath.Join(t.TempDir(), "sub", "obj"))

	ok, err := engine.Exists(ctx, u)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, Put(ctx, engine, u, bytes.NewReader([]byte("hello"))))
	b, err := Get(ctx, engine, u)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	size, err := engine.Size(ctx, u)
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	require.NoError(t, engine.Delete(ctx, u))
	_, err = Get(ctx, engine, u)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRouterRefusesUnknownScheme(t *testing.T) {
	router := NewRemoteEngine()
	_, err := router.Get(context.Background(), MustParseURI("/tmp/nope"))
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestParseURI(t *testing.T) {
	u, err := ParseURI("s3://bucket/a/b")
	require.NoError(t, err)
	assert.True(t, u.HasScheme(S3Scheme))
	assert.Equal(t, "b", u.Base())

	u, err = ParseURI("relative/file")
	require.NoError(t, err)
	assert.True(t, u.HasScheme(FileScheme))
	assert.True(t, filepath.IsAbs(u.Filepath()))

	assert.Equal(t, "s3://bucket/a/b/c", MustParseURI("s3://bucket/a").AppendPath("b", "c").String())
}
