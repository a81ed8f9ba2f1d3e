package table

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/stratadb/strata/pkg/storage"
	"go.uber.org/multierr"
)

const shardPrefix = "shard-"

func ShardName(n int) string {
	return fmt.Sprintf("%s%04d.ndjson", shardPrefix, n)
}

// Write lands frame at u on engine.  A composite table is laid out as
// shard objects of at most batch rows each under the u prefix; a
// single-file table is one object at u.  Any previous content at u is
// overwritten.
func Write(ctx context.Context, engine storage.Engine, u *storage.URI, frame *Frame, composite bool, batch int) error {
	if !composite {
		return writeObject(ctx, engine, u, frame.Columns, frame.Rows)
	}
	if batch <= 0 {
		return fmt.Errorf("invalid write batch size %d", batch)
	}
	// Overwrite semantics: clear any shards from a previous table at
	// this prefix before writing the new ones.
	if err := engine.DeleteByPrefix(ctx, u); err != nil {
		return err
	}
	rows := frame.Rows
	for n := 0; ; n++ {
		end := batch
		if end > len(rows) {
			end = len(rows)
		}
		if err := writeObject(ctx, engine, u.AppendPath(ShardName(n)), frame.Columns, rows[:end]); err != nil {
			return err
		}
		rows = rows[end:]
		if len(rows) == 0 {
			return nil
		}
	}
}

func writeObject(ctx context.Context, engine storage.Engine, u *storage.URI, columns []string, rows [][]interface{}) error {
	wc, err := engine.Put(ctx, u)
	if err != nil {
		return err
	}
	w := NewWriter(wc, columns)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// Read loads the table described by t into memory, merging shards in
// name order for composite tables.
func Read(ctx context.Context, engine storage.Engine, t *Table) (*Frame, error) {
	if !t.Composite {
		frame, err := readObject(ctx, engine, t.URI, nil)
		if err != nil {
			return nil, err
		}
		frame.Keys = t.Keys
		return frame, nil
	}
	infos, err := engine.List(ctx, t.URI)
	if err != nil {
		return nil, err
	}
	var shards []string
	for _, info := range infos {
		if strings.HasPrefix(info.Name, shardPrefix) {
			shards = append(shards, info.Name)
		}
	}
	if len(shards) == 0 {
		return nil, fmt.Errorf("%s: composite table has no shards", t.URI)
	}
	sort.Strings(shards)
	var frame *Frame
	for _, name := range shards {
		frame, err = readObject(ctx, engine, t.URI.AppendPath(name), frame)
		if err != nil {
			return nil, err
		}
	}
	frame.Keys = t.Keys
	return frame, nil
}

// readObject appends the rows of the object at u to into, or starts a
// new frame when into is nil.
func readObject(ctx context.Context, engine storage.Engine, u *storage.URI, into *Frame) (frame *Frame, err error) {
	rc, err := engine.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, rc.Close())
	}()
	r, err := NewReader(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u, err)
	}
	frame = into
	if frame == nil {
		frame = NewFrame(r.Columns...)
	} else if len(frame.Columns) != len(r.Columns) {
		return nil, fmt.Errorf("%s: shard columns disagree with table columns", u)
	}
	for {
		row, err := r.Read()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return frame, nil
		}
		frame.Rows = append(frame.Rows, row)
	}
}

// Delete removes the table described by t from engine.
func Delete(ctx context.Context, engine storage.Engine, t *Table) error {
	if t.Composite {
		return engine.DeleteByPrefix(ctx, t.URI)
	}
	return engine.Delete(ctx, t.URI)
}

// Exists reports whether a table is present at t's location.
func Exists(ctx context.Context, engine storage.Engine, t *Table) (bool, error) {
	if !t.Composite {
		return engine.Exists(ctx, t.URI)
	}
	infos, err := engine.List(ctx, t.URI)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	for _, info := range infos {
		if strings.HasPrefix(info.Name, shardPrefix) {
			return true, nil
		}
	}
	return false, nil
}
