package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stratadb/strata/api/client"
	"github.com/stratadb/strata/pkg/storage"
	"github.com/stratadb/strata/service"
	"github.com/stratadb/strata/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newCore(t *testing.T) (*service.Core, *client.Connection) {
	core, err := service.NewCore(context.Background(), service.Config{
		Root:   storage.MustParseURI(t.TempDir()),
		Logger: zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(core)
	t.Cleanup(srv.Close)
	return core, client.NewConnectionTo(srv.URL)
}

func TestObjectRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, conn := newCore(t)

	require.NoError(t, conn.PutObject(ctx, "t/obj", bytes.NewReader([]byte("payload"))))

	rc, err := conn.GetObject(ctx, "t/obj")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "payload", string(b))

	info, err := conn.StatObject(ctx, "t/obj")
	require.NoError(t, err)
	assert.EqualValues(t, 7, info.Size)

	require.NoError(t, conn.DeleteObject(ctx, "t/obj", false))
	_, err = conn.GetObject(ctx, "t/obj")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListObjects(t *testing.T) {
	ctx := context.Background()
	_, conn := newCore(t)
	require.NoError(t, conn.PutObject(ctx, "t/shard-0000.ndjson", bytes.NewReader([]byte("a"))))
	require.NoError(t, conn.PutObject(ctx, "t/shard-0001.ndjson", bytes.NewReader([]byte("bc"))))

	infos, err := conn.ListObjects(ctx, "t")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "shard-0000.ndjson", infos[0].Name)
}

func TestDeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	_, conn := newCore(t)
	require.NoError(t, conn.PutObject(ctx, "t/shard-0000.ndjson", bytes.NewReader([]byte("a"))))
	require.NoError(t, conn.PutObject(ctx, "t/shard-0001.ndjson", bytes.NewReader([]byte("b"))))

	require.NoError(t, conn.DeleteObject(ctx, "t", true))
	_, err := conn.GetObject(ctx, "t/shard-0000.ndjson")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRejectsEmptyPath(t *testing.T) {
	ctx := context.Background()
	_, conn := newCore(t)
	_, err := conn.GetObject(ctx, "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, storage.ErrNotFound))
}

func TestCopyFromCompositeTable(t *testing.T) {
	ctx := context.Background()
	_, conn := newCore(t)

	local := storage.NewFileSystem()
	u := storage.MustParseURI(filepath.Join(t.TempDir(), "scratch"))
	f := table.NewFrame("g", "x").Append("a", 1.0).Append("b", 2.0).Append("c", 3.0)
	require.NoError(t, table.Write(ctx, local, u, f, true, 1))

	require.NoError(t, conn.CopyFrom(ctx, local, table.New(u, true, nil), "out"))

	remote := client.NewEngine(conn)
	got, err := table.Read(ctx, remote, table.New(conn.URL("out"), true, nil))
	require.NoError(t, err)
	assert.Equal(t, f.Rows, got.Rows)
}

func TestClientEngineWrites(t *testing.T) {
	ctx := context.Background()
	_, conn := newCore(t)
	remote := client.NewEngine(conn)

	u := conn.URL("t.ndjson")
	f := table.NewFrame("x").Append(1.0).Append(2.0)
	require.NoError(t, table.Write(ctx, remote, u, f, false, 10))
	got, err := table.Read(ctx, remote, table.New(u, false, nil))
	require.NoError(t, err)
	assert.Equal(t, f.Rows, got.Rows)

	ok, err := remote.Exists(ctx, u)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWriteMetrics(t *testing.T) {
	ctx := context.Background()
	core, conn := newCore(t)
	require.NoError(t, conn.PutObject(ctx, "m/obj", bytes.NewReader([]byte("12345"))))
	assert.EqualValues(t, 1, promCounterValue(t, core.Registry(), "objects_written_total"))
	assert.EqualValues(t, 5, promCounterValue(t, core.Registry(), "object_bytes_written_total"))
}

func promCounterValue(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	metricFamilies, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric not found: %s", name)
	return 0
}
