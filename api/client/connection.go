// Package client implements the HTTP client for the intermediary
// service that fronts a distributed store the client process cannot
// reach itself.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stratadb/strata/api"
	"github.com/stratadb/strata/pkg/storage"
	"github.com/stratadb/strata/table"
	"golang.org/x/sync/errgroup"
)

const DefaultUserAgent = "strata-client-golang"

// copyConcurrency bounds parallel shard uploads in CopyFrom.
const copyConcurrency = 4

type Connection struct {
	client        *http.Client
	defaultHeader http.Header
	hostURL       string
}

// NewConnectionTo creates a connection with a base URL derived from
// the hostURL argument.
func NewConnectionTo(hostURL string) *Connection {
	return &Connection{
		client:        &http.Client{},
		defaultHeader: http.Header{"User-Agent": []string{DefaultUserAgent}},
		hostURL:       strings.TrimSuffix(hostURL, "/"),
	}
}

func (c *Connection) ClientHostURL() string {
	return c.hostURL
}

func (c *Connection) SetAuthToken(token string) {
	c.defaultHeader.Set("Authorization", "Bearer "+token)
}

// URL returns the service URI addressing the object at path, which is
// how remote tables are named in table descriptors.
func (c *Connection) URL(path string) *storage.URI {
	return storage.MustParseURI(c.hostURL + "/objects/" + strings.TrimPrefix(path, "/"))
}

// RelPath resolves a service URI back to a store-relative object path.
func (c *Connection) RelPath(u *storage.URI) (string, bool) {
	prefix := c.hostURL + "/objects/"
	s := u.String()
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	return strings.TrimPrefix(s, prefix), true
}

func (c *Connection) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := c.hostURL + "/objects/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	for k, v := range c.defaultHeader {
		req.Header[k] = v
	}
	return req, nil
}

func (c *Connection) do(req *http.Request) (*http.Response, error) {
	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		defer res.Body.Close()
		return nil, parseError(res)
	}
	return res, nil
}

// parseError parses an error from a response with an error status
// code.  A 404 maps onto storage.ErrNotFound so callers can treat
// remote and direct engines uniformly.
func parseError(r *http.Response) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	var wrapped error
	if strings.HasPrefix(r.Header.Get("Content-Type"), api.MediaTypeJSON) {
		var apierr api.Error
		if err := json.Unmarshal(body, &apierr); err == nil {
			wrapped = &apierr
		}
	}
	if wrapped == nil {
		wrapped = errors.New(strings.TrimSpace(string(body)))
	}
	if r.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %s", r.Request.URL, storage.ErrNotFound, wrapped)
	}
	return fmt.Errorf("%s: %w", r.Request.URL, wrapped)
}

func (c *Connection) GetObject(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (c *Connection) PutObject(ctx context.Context, path string, r io.Reader) error {
	req, err := c.newRequest(ctx, http.MethodPut, path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", api.MediaTypeNDJSON)
	res, err := c.do(req)
	if err != nil {
		return err
	}
	return res.Body.Close()
}

func (c *Connection) DeleteObject(ctx context.Context, path string, prefix bool) error {
	if prefix {
		path += "?prefix=1"
	}
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	res, err := c.do(req)
	if err != nil {
		return err
	}
	return res.Body.Close()
}

func (c *Connection) ListObjects(ctx context.Context, path string) ([]api.ObjectInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path+"?list=1", nil)
	if err != nil {
		return nil, err
	}
	res, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	var infos []api.ObjectInfo
	if err := json.NewDecoder(res.Body).Decode(&infos); err != nil {
		return nil, err
	}
	return infos, nil
}

func (c *Connection) StatObject(ctx context.Context, path string) (api.ObjectInfo, error) {
	req, err := c.newRequest(ctx, http.MethodHead, path, nil)
	if err != nil {
		return api.ObjectInfo{}, err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return api.ObjectInfo{}, err
	}
	res.Body.Close()
	switch {
	case res.StatusCode == http.StatusNotFound:
		return api.ObjectInfo{}, fmt.Errorf("%s: %w", path, storage.ErrNotFound)
	case res.StatusCode < 200 || res.StatusCode > 299:
		return api.ObjectInfo{}, errors.New(res.Status)
	}
	return api.ObjectInfo{Name: path, Size: res.ContentLength}, nil
}

// CopyFrom copies the local table src across to the distributed store
// at dstPath, preserving its single-file or sharded layout.  Shards
// upload concurrently.
func (c *Connection) CopyFrom(ctx context.Context, from storage.Engine, src *table.Table, dstPath string) error {
	if !src.Composite {
		r, err := from.Get(ctx, src.URI)
		if err != nil {
			return err
		}
		err = c.PutObject(ctx, dstPath, r)
		if closeErr := r.Close(); err == nil {
			err = closeErr
		}
		return err
	}
	// Clear any previous table at the destination so stale shards
	// cannot mix with the new ones.
	if err := c.DeleteObject(ctx, dstPath, true); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	infos, err := from.List(ctx, src.URI)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	for _, info := range infos {
		name := info.Name
		g.Go(func() error {
			r, err := from.Get(ctx, src.URI.AppendPath(name))
			if err != nil {
				return err
			}
			err = c.PutObject(ctx, dstPath+"/"+name, r)
			if closeErr := r.Close(); err == nil {
				err = closeErr
			}
			return err
		})
	}
	return g.Wait()
}
