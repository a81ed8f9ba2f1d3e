// Package storagetest provides a storage engine that rewrites one
// scheme's URIs onto a local filesystem root, standing in for a
// distributed store in tests.
package storagetest

import (
	"context"
	"io"

	"github.com/stratadb/strata/pkg/storage"
)

type Engine struct {
	scheme storage.Scheme
	root   *storage.URI
	fs     *storage.FileSystem
}

var _ storage.Engine = (*Engine)(nil)

// NewEngine returns an engine serving scheme URIs from the directory
// root.  s3://bucket/key maps onto root/bucket/key.
func NewEngine(scheme storage.Scheme, root string) *Engine {
	return &Engine{
		scheme: scheme,
		root:   storage.MustParseURI(root),
		fs:     storage.NewFileSystem(),
	}
}

func (e *Engine) rewrite(u *storage.URI) (*storage.URI, error) {
	if !u.HasScheme(e.scheme) {
		return nil, storage.ErrNotSupported
	}
	r := *e.root
	r.Path = r.Path + "/" + u.Host + u.Path
	return &r, nil
}

func (e *Engine) Get(ctx context.Context, u *storage.URI) (storage.Reader, error) {
	ru, err := e.rewrite(u)
	if err != nil {
		return nil, err
	}
	return e.fs.Get(ctx, ru)
}

func (e *Engine) Put(ctx context.Context, u *storage.URI) (io.WriteCloser, error) {
	ru, err := e.rewrite(u)
	if err != nil {
		return nil, err
	}
	return e.fs.Put(ctx, ru)
}

func (e *Engine) Delete(ctx context.Context, u *storage.URI) error {
	ru, err := e.rewrite(u)
	if err != nil {
		return err
	}
	return e.fs.Delete(ctx, ru)
}

func (e *Engine) DeleteByPrefix(ctx context.Context, u *storage.URI) error {
	ru, err := e.rewrite(u)
	if err != nil {
		return err
	}
	return e.fs.DeleteByPrefix(ctx, ru)
}

func (e *Engine) Exists(ctx context.Context, u *storage.URI) (bool, error) {
	ru, err := e.rewrite(u)
	if err != nil {
		return false, err
	}
	return e.fs.Exists(ctx, ru)
}

func (e *Engine) Size(ctx context.Context, u *storage.URI) (int64, error) {
	ru, err := e.rewrite(u)
	if err != nil {
		return 0, err
	}
	return e.fs.Size(ctx, ru)
}

func (e *Engine) List(ctx context.Context, u *storage.URI) ([]storage.Info, error) {
	ru, err := e.rewrite(u)
	if err != nil {
		return nil, err
	}
	return e.fs.List(ctx, ru)
}
