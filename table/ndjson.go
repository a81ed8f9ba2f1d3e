package table

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// The on-disk row format is newline-delimited JSON arrays: a header
// line holding the column names followed by one array per row.  Arrays
// rather than objects so that column order survives the round trip.

// Writer writes a frame's rows to an underlying object writer.
type Writer struct {
	closer  io.Closer
	writer  *bufio.Writer
	encoder *json.Encoder
	header  bool
	columns []string
}

func NewWriter(wc io.WriteCloser, columns []string) *Writer {
	w := bufio.NewWriter(wc)
	return &Writer{
		closer:  wc,
		writer:  w,
		encoder: json.NewEncoder(w),
		columns: columns,
	}
}

func (w *Writer) Write(row []interface{}) error {
	if !w.header {
		if err := w.encoder.Encode(w.columns); err != nil {
			return err
		}
		w.header = true
	}
	if len(row) != len(w.columns) {
		return fmt.Errorf("row has %d values for %d columns", len(row), len(w.columns))
	}
	return w.encoder.Encode(row)
}

func (w *Writer) Close() error {
	if !w.header {
		// Header is written lazily so an empty table still records
		// its columns.
		if err := w.encoder.Encode(w.columns); err != nil {
			w.closer.Close()
			return err
		}
	}
	err := w.writer.Flush()
	if closeErr := w.closer.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Reader reads rows written by Writer.  Read returns nil at end of
// stream.
type Reader struct {
	decoder *json.Decoder
	Columns []string
}

func NewReader(r io.Reader) (*Reader, error) {
	d := json.NewDecoder(bufio.NewReader(r))
	var columns []string
	if err := d.Decode(&columns); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("table object is empty")
		}
		return nil, fmt.Errorf("reading table header: %w", err)
	}
	return &Reader{decoder: d, Columns: columns}, nil
}

func (r *Reader) Read() ([]interface{}, error) {
	var row []interface{}
	if err := r.decoder.Decode(&row); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if len(row) != len(r.Columns) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(row), len(r.Columns))
	}
	return row, nil
}
