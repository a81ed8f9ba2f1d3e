package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// HTTPEngine provides read-only access to objects served over http,
// which is how a client without distributed-store credentials reads
// tables exposed by an intermediary service.
type HTTPEngine struct{}

var _ Engine = (*HTTPEngine)(nil)

func NewHTTP() *HTTPEngine {
	return &HTTPEngine{}
}

func (*HTTPEngine) Get(ctx context.Context, u *URI) (Reader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, notFound(u)
		}
		return nil, errors.New(resp.Status)
	}
	return resp.Body, nil
}

func (*HTTPEngine) Put(context.Context, *URI) (io.WriteCloser, error) {
	return nil, ErrNotSupported
}

func (*HTTPEngine) Delete(context.Context, *URI) error {
	return ErrNotSupported
}

func (*HTTPEngine) DeleteByPrefix(context.Context, *URI) error {
	return ErrNotSupported
}

func (*HTTPEngine) Size(ctx context.Context, u *URI) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.New(resp.Status)
	}
	return resp.ContentLength, nil
}

func (*HTTPEngine) Exists(ctx context.Context, u *URI) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return false, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (*HTTPEngine) List(context.Context, *URI) ([]Info, error) {
	return nil, ErrNotSupported
}
