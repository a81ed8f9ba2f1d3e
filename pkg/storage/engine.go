package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

type Reader interface {
	io.Reader
	io.Closer
}

type Sizer interface {
	Size() (int64, error)
}

var (
	ErrNotSupported = errors.New("method call on storage engine not supported")
	ErrNotFound     = errors.New("not found")
)

// Engine is the minimal object-store surface the summarize layer needs:
// stream objects in and out, probe them, enumerate a prefix, and delete.
type Engine interface {
	Get(context.Context, *URI) (Reader, error)
	Put(context.Context, *URI) (io.WriteCloser, error)
	Delete(context.Context, *URI) error
	DeleteByPrefix(context.Context, *URI) error
	Exists(context.Context, *URI) (bool, error)
	Size(context.Context, *URI) (int64, error)
	List(context.Context, *URI) ([]Info, error)
}

type Info struct {
	Name string
	Size int64
}

// NewLocalEngine returns a router that can reach local files as well as
// s3 and http objects, which is the view a process with direct access
// to the distributed store has.
func NewLocalEngine() *Router {
	router := NewRemoteEngine()
	router.Enable(FileScheme)
	return router
}

// NewRemoteEngine returns a router restricted to non-file schemes.
func NewRemoteEngine() *Router {
	router := NewRouter()
	router.Enable(HTTPScheme)
	router.Enable(HTTPSScheme)
	router.Enable(S3Scheme)
	return router
}

func Put(ctx context.Context, engine Engine, u *URI, r io.Reader) error {
	w, err := engine.Put(ctx, u)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	return err
}

func Get(ctx context.Context, engine Engine, u *URI) ([]byte, error) {
	r, err := engine.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	b, err := io.ReadAll(r)
	if closeErr := r.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Copy streams the object at src on from to dst on to.  It does not
// interpret the object's contents.
func Copy(ctx context.Context, from Engine, src *URI, to Engine, dst *URI) error {
	r, err := from.Get(ctx, src)
	if err != nil {
		return err
	}
	err = Put(ctx, to, dst, r)
	if closeErr := r.Close(); err == nil {
		err = closeErr
	}
	return err
}

func Size(r Reader) (int64, error) {
	if sizer, ok := r.(Sizer); ok {
		return sizer.Size()
	}
	return 0, ErrNotSupported
}

func notFound(u *URI) error {
	return fmt.Errorf("%s: %w", u, ErrNotFound)
}
