package storage

import (
	"context"
	"fmt"
	"io"
)

// Router dispatches each engine call to the engine registered for the
// URI's scheme.  Schemes must be explicitly enabled so a process that
// should not touch, say, local files cannot be handed a file URI by
// accident.
type Router struct {
	engines map[Scheme]Engine
}

var _ Engine = (*Router)(nil)

func NewRouter() *Router {
	return &Router{engines: make(map[Scheme]Engine)}
}

func (r *Router) Enable(scheme Scheme) {
	switch scheme {
	case FileScheme:
		r.engines[scheme] = NewFileSystem()
	case HTTPScheme, HTTPSScheme:
		r.engines[scheme] = NewHTTP()
	case S3Scheme:
		r.engines[scheme] = NewS3()
	default:
		panic(fmt.Sprintf("unknown storage scheme: %q", scheme))
	}
}

// Register installs a custom engine for scheme, replacing any engine
// previously enabled for it.  Tests use this to route s3 URIs to a
// filesystem-backed stand-in.
func (r *Router) Register(scheme Scheme, engine Engine) {
	r.engines[scheme] = engine
}

func (r *Router) lookup(u *URI) (Engine, error) {
	if engine, ok := r.engines[Scheme(u.Scheme)]; ok {
		return engine, nil
	}
	return nil, fmt.Errorf("%s: unsupported scheme %q: %w", u, u.Scheme, ErrNotSupported)
}

func (r *Router) Get(ctx context.Context, u *URI) (Reader, error) {
	engine, err := r.lookup(u)
	if err != nil {
		return nil, err
	}
	return engine.Get(ctx, u)
}

func (r *Router) Put(ctx context.Context, u *URI) (io.WriteCloser, error) {
	engine, err := r.lookup(u)
	if err != nil {
		return nil, err
	}
	return engine.Put(ctx, u)
}

func (r *Router) Delete(ctx context.Context, u *URI) error {
	engine, err := r.lookup(u)
	if err != nil {
		return err
	}
	return engine.Delete(ctx, u)
}

func (r *Router) DeleteByPrefix(ctx context.Context, u *URI) error {
	engine, err := r.lookup(u)
	if err != nil {
		return err
	}
	return engine.DeleteByPrefix(ctx, u)
}

func (r *Router) Exists(ctx context.Context, u *URI) (bool, error) {
	engine, err := r.lookup(u)
	if err != nil {
		return false, err
	}
	return engine.Exists(ctx, u)
}

func (r *Router) Size(ctx context.Context, u *URI) (int64, error) {
	engine, err := r.lookup(u)
	if err != nil {
		return 0, err
	}
	return engine.Size(ctx, u)
}

func (r *Router) List(ctx context.Context, u *URI) ([]Info, error) {
	engine, err := r.lookup(u)
	if err != nil {
		return nil, err
	}
	return engine.List(ctx, u)
}
