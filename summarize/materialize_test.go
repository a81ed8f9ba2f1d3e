package summarize_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stratadb/strata/agg"
	"github.com/stratadb/strata/engine"
	"github.com/stratadb/strata/pkg/storage"
	"github.com/stratadb/strata/pkg/storage/storagetest"
	"github.com/stratadb/strata/summarize"
	"github.com/stratadb/strata/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEngine returns a canned raw result from every procedure so the
// tests can steer the materializer directly.
type stubEngine struct {
	raw   engine.Raw
	err   error
	calls int
}

func (e *stubEngine) result() (engine.Raw, error) {
	e.calls++
	return e.raw, e.err
}

func (e *stubEngine) Cube(context.Context, *engine.Request) (engine.Raw, error) {
	return e.result()
}
func (e *stubEngine) Summary(context.Context, *engine.Request) (engine.Raw, error) {
	return e.result()
}
func (e *stubEngine) LabelSummary(context.Context, *engine.Request) (engine.Raw, error) {
	return e.result()
}
func (e *stubEngine) SplitApply(context.Context, *engine.Request) (engine.Raw, error) {
	return e.result()
}
func (e *stubEngine) SplitSummary(context.Context, *engine.Request) (engine.Raw, error) {
	return e.result()
}

func rawFrameResult() engine.Raw {
	return &engine.RawFrame{Frame: table.NewFrame("c").Append(6.0)}
}

// writeRawFileResult stages a table on local storage the way an
// engine writing its own output file would.
func writeRawFileResult(t *testing.T, sess *summarize.Session) *table.Table {
	t.Helper()
	u := storage.MustParseURI(filepath.Join(t.TempDir(), "engine-out.ndjson"))
	f := table.NewFrame("c").Append(6.0)
	require.NoError(t, table.Write(context.Background(), sess.Local, u, f, false, 100))
	return table.New(u, false, nil)
}

func TestLocalRawFileLoadedForMemoryTarget(t *testing.T) {
	ctx := context.Background()
	sess := newLocalSession(t)
	rawTable := writeRawFileResult(t, sess)
	sess.Engine = &stubEngine{raw: &engine.RawFile{Table: rawTable}}
	in := writeLocalInput(t, sess, nil)

	res, err := sess.Summarize(ctx, &summarize.Request{
		Input:  in,
		Aggs:   agg.Spec{{Name: "c", Expr: &agg.Count{}}},
		Target: summarize.ToMemory(),
	})
	require.NoError(t, err)
	assert.Equal(t, summarize.RepMemory, res.Rep)
	require.Equal(t, 1, res.Frame.Len())
	assert.Equal(t, 6.0, res.Frame.Rows[0][0])
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "file-backed result")

	ok, err := table.Exists(ctx, sess.Local, rawTable)
	require.NoError(t, err)
	assert.False(t, ok, "raw file must be deleted after loading")
}

func TestLocalRawFileAdoptedAsManaged(t *testing.T) {
	ctx := context.Background()
	sess := newLocalSession(t)
	rawTable := writeRawFileResult(t, sess)
	sess.Engine = &stubEngine{raw: &engine.RawFile{Table: rawTable}}
	in := writeLocalInput(t, sess, nil)

	res, err := sess.Summarize(ctx, &summarize.Request{
		Input: in,
		Aggs:  agg.Spec{{Name: "c", Expr: &agg.Count{}}},
	})
	require.NoError(t, err)
	assert.Equal(t, summarize.RepManaged, res.Rep)
	assert.Equal(t, rawTable.URI.String(), res.Table.URI.String())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "adopting")

	ok, err := table.Exists(ctx, sess.Local, res.Table)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalRawFileMovedToNamedTarget(t *testing.T) {
	ctx := context.Background()
	sess := newLocalSession(t)
	rawTable := writeRawFileResult(t, sess)
	sess.Engine = &stubEngine{raw: &engine.RawFile{Table: rawTable}}
	in := writeLocalInput(t, sess, nil)

	path := filepath.Join(t.TempDir(), "wanted.ndjson")
	res, err := sess.Summarize(ctx, &summarize.Request{
		Input:  in,
		Aggs:   agg.Spec{{Name: "c", Expr: &agg.Count{}}},
		Target: summarize.ToPath(path),
	})
	require.NoError(t, err)
	assert.Equal(t, summarize.RepNamed, res.Rep)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "moved")

	got, err := table.Read(ctx, sess.Local, res.Table)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got.Rows[0][0])

	ok, err := table.Exists(ctx, sess.Local, rawTable)
	require.NoError(t, err)
	assert.False(t, ok, "source must be gone after the move")
}

func TestDistributedRawFileIsFatal(t *testing.T) {
	ctx := context.Background()
	sess := newLocalSession(t)
	sess.Distributed = storagetest.NewEngine(storage.S3Scheme, t.TempDir())
	rawTable := writeRawFileResult(t, sess)
	sess.Engine = &stubEngine{raw: &engine.RawFile{Table: rawTable}}
	in := table.New(storage.MustParseURI("s3://pool/events"), true, []string{"g"})

	_, err := sess.Summarize(ctx, &summarize.Request{
		Input: in,
		Aggs:  agg.Spec{{Name: "c", Expr: &agg.Count{}}},
	})
	var werr *summarize.UnexpectedWorkerOutputError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, summarize.MethodCube, werr.Method)
}

func TestEngineErrorPropagatesUnwrapped(t *testing.T) {
	ctx := context.Background()
	sess := newLocalSession(t)
	stub := &stubEngine{err: assert.AnError}
	sess.Engine = stub
	in := writeLocalInput(t, sess, nil)

	_, err := sess.Summarize(ctx, &summarize.Request{
		Input: in,
		Aggs:  agg.Spec{{Name: "c", Expr: &agg.Count{}}},
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, stub.calls)
}
