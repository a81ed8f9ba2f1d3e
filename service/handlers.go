package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/stratadb/strata/api"
	"github.com/stratadb/strata/pkg/storage"
	"go.uber.org/zap"
)

func (c *Core) objectURI(r *http.Request) (*storage.URI, error) {
	path := mux.Vars(r)["path"]
	if path == "" {
		return nil, errors.New("empty object path")
	}
	elems := strings.Split(path, "/")
	for _, e := range elems {
		if e == "" || e == "." || e == ".." {
			return nil, fmt.Errorf("invalid object path: %q", path)
		}
	}
	return c.root.AppendPath(elems...), nil
}

func (c *Core) handleGet(w http.ResponseWriter, r *http.Request) {
	u, err := c.objectURI(r)
	if err != nil {
		c.respondError(w, r, http.StatusBadRequest, err)
		return
	}
	if r.URL.Query().Get("list") != "" {
		c.handleList(w, r, u)
		return
	}
	rc, err := c.engine.Get(r.Context(), u)
	if err != nil {
		c.respondStorageError(w, r, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", api.MediaTypeNDJSON)
	if _, err := io.Copy(w, rc); err != nil {
		c.requestLogger(r).Warn("Error writing response", zap.Error(err))
	}
}

func (c *Core) handleList(w http.ResponseWriter, r *http.Request, u *storage.URI) {
	infos, err := c.engine.List(r.Context(), u)
	if err != nil {
		c.respondStorageError(w, r, err)
		return
	}
	objects := make([]api.ObjectInfo, 0, len(infos))
	for _, info := range infos {
		objects = append(objects, api.ObjectInfo{Name: info.Name, Size: info.Size})
	}
	c.respondJSON(w, r, http.StatusOK, objects)
}

func (c *Core) handleHead(w http.ResponseWriter, r *http.Request) {
	u, err := c.objectURI(r)
	if err != nil {
		c.respondError(w, r, http.StatusBadRequest, err)
		return
	}
	size, err := c.engine.Size(r.Context(), u)
	if err != nil {
		c.respondStorageError(w, r, err)
		return
	}
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
}

func (c *Core) handlePut(w http.ResponseWriter, r *http.Request) {
	u, err := c.objectURI(r)
	if err != nil {
		c.respondError(w, r, http.StatusBadRequest, err)
		return
	}
	wc, err := c.engine.Put(r.Context(), u)
	if err != nil {
		c.respondStorageError(w, r, err)
		return
	}
	n, err := io.Copy(wc, r.Body)
	if closeErr := wc.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		c.respondStorageError(w, r, err)
		return
	}
	c.objectsWritten.Inc()
	c.bytesWritten.Add(float64(n))
	w.WriteHeader(http.StatusNoContent)
}

func (c *Core) handleDelete(w http.ResponseWriter, r *http.Request) {
	u, err := c.objectURI(r)
	if err != nil {
		c.respondError(w, r, http.StatusBadRequest, err)
		return
	}
	if r.URL.Query().Get("prefix") != "" {
		err = c.engine.DeleteByPrefix(r.Context(), u)
	} else {
		err = c.engine.Delete(r.Context(), u)
	}
	if err != nil {
		c.respondStorageError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Core) respondStorageError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, storage.ErrNotFound) {
		status = http.StatusNotFound
	}
	c.respondError(w, r, status, err)
}

func (c *Core) respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	c.respondJSON(w, r, status, api.Error{
		Kind:    http.StatusText(status),
		Message: err.Error(),
	})
}

func (c *Core) respondJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", api.MediaTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		c.requestLogger(r).Warn("Error writing response", zap.Error(err))
	}
}

func (c *Core) requestLogger(r *http.Request) *zap.Logger {
	return c.logger.With(zap.String("request_id", api.RequestIDFromContext(r.Context())))
}
