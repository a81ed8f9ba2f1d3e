package client

import (
	"context"
	"errors"
	"io"

	"github.com/stratadb/strata/pkg/storage"
)

// Engine adapts a Connection to the storage.Engine interface so table
// io can read and manage remote tables through the intermediary with
// the same code paths it uses against direct engines.  URIs must be
// service object URIs as produced by Connection.URL.
type Engine struct {
	conn *Connection
}

var _ storage.Engine = (*Engine)(nil)

func NewEngine(conn *Connection) *Engine {
	return &Engine{conn: conn}
}

func (e *Engine) rel(u *storage.URI) (string, error) {
	path, ok := e.conn.RelPath(u)
	if !ok {
		return "", storage.ErrNotSupported
	}
	return path, nil
}

func (e *Engine) Get(ctx context.Context, u *storage.URI) (storage.Reader, error) {
	path, err := e.rel(u)
	if err != nil {
		return nil, err
	}
	return e.conn.GetObject(ctx, path)
}

func (e *Engine) Put(ctx context.Context, u *storage.URI) (io.WriteCloser, error) {
	path, err := e.rel(u)
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := e.conn.PutObject(ctx, path, pr)
		pr.CloseWithError(err)
		done <- err
	}()
	return &pipeCloser{pw, done}, nil
}

type pipeCloser struct {
	*io.PipeWriter
	done chan error
}

func (p *pipeCloser) Close() error {
	if err := p.PipeWriter.Close(); err != nil {
		return err
	}
	return <-p.done
}

func (e *Engine) Delete(ctx context.Context, u *storage.URI) error {
	path, err := e.rel(u)
	if err != nil {
		return err
	}
	return e.conn.DeleteObject(ctx, path, false)
}

func (e *Engine) DeleteByPrefix(ctx context.Context, u *storage.URI) error {
	path, err := e.rel(u)
	if err != nil {
		return err
	}
	return e.conn.DeleteObject(ctx, path, true)
}

func (e *Engine) Exists(ctx context.Context, u *storage.URI) (bool, error) {
	path, err := e.rel(u)
	if err != nil {
		return false, err
	}
	_, err = e.conn.StatObject(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (e *Engine) Size(ctx context.Context, u *storage.URI) (int64, error) {
	path, err := e.rel(u)
	if err != nil {
		return 0, err
	}
	info, err := e.conn.StatObject(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

func (e *Engine) List(ctx context.Context, u *storage.URI) ([]storage.Info, error) {
	path, err := e.rel(u)
	if err != nil {
		return nil, err
	}
	objects, err := e.conn.ListObjects(ctx, path)
	if err != nil {
		return nil, err
	}
	infos := make([]storage.Info, 0, len(objects))
	for _, o := range objects {
		infos = append(infos, storage.Info{Name: o.Name, Size: o.Size})
	}
	return infos, nil
}
