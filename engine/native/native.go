// Package native is an in-process aggregation engine implementing all
// five execution methods over file-backed tables.  It loads each input
// fully into memory, which makes it a reference implementation and a
// test fixture rather than a big-data backend; real deployments swap
// in an engine that talks to one.
package native

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
	"github.com/stratadb/strata/agg"
	"github.com/stratadb/strata/engine"
	"github.com/stratadb/strata/pkg/storage"
	"github.com/stratadb/strata/table"
)

// DefaultLabelSep joins grouping-key labels in the label-summary
// method.  Callers can override it with the "label.sep" engine arg.
const DefaultLabelSep = "\x1f"

type Native struct {
	reader storage.Engine
}

var _ engine.Engine = (*Native)(nil)

// New returns a native engine reading input tables through reader.
func New(reader storage.Engine) *Native {
	return &Native{reader: reader}
}

func (n *Native) Cube(ctx context.Context, req *engine.Request) (engine.Raw, error) {
	if len(req.Keys) == 0 {
		return nil, fmt.Errorf("native: cube requires grouping keys")
	}
	return n.fold(ctx, req, req.Keys)
}

func (n *Native) Summary(ctx context.Context, req *engine.Request) (engine.Raw, error) {
	return n.fold(ctx, req, req.Keys)
}

// LabelSummary pastes the grouping-key labels of each row into one
// synthetic label, folds on that single key, then splits the labels
// back into the original key columns.
func (n *Native) LabelSummary(ctx context.Context, req *engine.Request) (engine.Raw, error) {
	if len(req.Keys) == 0 {
		return nil, fmt.Errorf("native: label summary requires grouping keys")
	}
	sep := DefaultLabelSep
	if v, ok := req.Args["label.sep"]; ok {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("native: label.sep: %w", err)
		}
		sep = s
	}
	in, err := table.Read(ctx, n.reader, req.Input)
	if err != nil {
		return nil, err
	}
	pasted, err := pasteKeys(in, req.Keys, sep)
	if err != nil {
		return nil, err
	}
	folded, err := foldFrame(pasted, []string{labelColumn}, req.Aggs)
	if err != nil {
		return nil, err
	}
	return &engine.RawFrame{Frame: unpasteKeys(folded, req.Keys, sep)}, nil
}

func (n *Native) SplitApply(ctx context.Context, req *engine.Request) (engine.Raw, error) {
	return n.split(ctx, req, true)
}

func (n *Native) SplitSummary(ctx context.Context, req *engine.Request) (engine.Raw, error) {
	return n.split(ctx, req, false)
}

func (n *Native) fold(ctx context.Context, req *engine.Request, keys []string) (engine.Raw, error) {
	in, err := table.Read(ctx, n.reader, req.Input)
	if err != nil {
		return nil, err
	}
	out, err := foldFrame(in, keys, req.Aggs)
	if err != nil {
		return nil, err
	}
	return &engine.RawFrame{Frame: out}, nil
}

// split materializes each group's rows before reducing them, which is
// how the two split methods trade speed for unbounded cardinality and
// (with custom set) arbitrary registered functions.
func (n *Native) split(ctx context.Context, req *engine.Request, custom bool) (engine.Raw, error) {
	in, err := table.Read(ctx, n.reader, req.Input)
	if err != nil {
		return nil, err
	}
	gs, err := splitGroups(in, req.Keys)
	if err != nil {
		return nil, err
	}
	out := table.NewFrame(append(append([]string{}, req.Keys...), req.Aggs.Columns()...)...)
	for _, g := range gs {
		row := append([]interface{}{}, g.keyVals...)
		for _, a := range req.Aggs {
			v, err := reduceGroup(in, g, a, custom)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		out.Append(row...)
	}
	return &engine.RawFrame{Frame: out}, nil
}

const labelColumn = "\x00label"

func pasteKeys(in *table.Frame, keys []string, sep string) (*table.Frame, error) {
	idx, err := keyIndexes(in, keys)
	if err != nil {
		return nil, err
	}
	out := table.NewFrame(append([]string{labelColumn}, in.Columns...)...)
	for _, row := range in.Rows {
		labels := make([]string, len(idx))
		for i, k := range idx {
			labels[i] = cast.ToString(row[k])
		}
		out.Append(append([]interface{}{strings.Join(labels, sep)}, row...)...)
	}
	return out, nil
}

func unpasteKeys(folded *table.Frame, keys []string, sep string) *table.Frame {
	out := table.NewFrame(append(append([]string{}, keys...), folded.Columns[1:]...)...)
	for _, row := range folded.Rows {
		labels := strings.SplitN(cast.ToString(row[0]), sep, len(keys))
		vals := make([]interface{}, 0, len(keys)+len(row)-1)
		for _, l := range labels {
			vals = append(vals, l)
		}
		out.Append(append(vals, row[1:]...)...)
	}
	return out
}

// foldFrame computes the aggregation with one pass of incremental
// accumulators per (group, assignment).
func foldFrame(in *table.Frame, keys []string, aggs agg.Spec) (*table.Frame, error) {
	gs, err := splitGroups(in, keys)
	if err != nil {
		return nil, err
	}
	out := table.NewFrame(append(append([]string{}, keys...), aggs.Columns()...)...)
	for _, g := range gs {
		row := append([]interface{}{}, g.keyVals...)
		for _, a := range aggs {
			v, err := foldGroup(in, g, a)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		out.Append(row...)
	}
	return out, nil
}

type group struct {
	keyVals []interface{}
	rows    []int
}

func keyIndexes(in *table.Frame, keys []string) ([]int, error) {
	idx := make([]int, len(keys))
	for i, k := range keys {
		n, ok := in.ColumnIndex(k)
		if !ok {
			return nil, fmt.Errorf("native: no such grouping key: %q", k)
		}
		idx[i] = n
	}
	return idx, nil
}

// splitGroups partitions row indexes by key tuple in first-seen order.
// With no keys the whole input is one group with an empty key tuple.
func splitGroups(in *table.Frame, keys []string) ([]*group, error) {
	if len(keys) == 0 {
		g := &group{}
		for i := range in.Rows {
			g.rows = append(g.rows, i)
		}
		return []*group{g}, nil
	}
	idx, err := keyIndexes(in, keys)
	if err != nil {
		return nil, err
	}
	var ordered []*group
	byKey := make(map[string]*group)
	for i, row := range in.Rows {
		parts := make([]string, len(idx))
		for k, n := range idx {
			parts[k] = cast.ToString(row[n])
		}
		key := strings.Join(parts, "\x1f")
		g, ok := byKey[key]
		if !ok {
			keyVals := make([]interface{}, len(idx))
			for k, n := range idx {
				keyVals[k] = row[n]
			}
			g = &group{keyVals: keyVals}
			byKey[key] = g
			ordered = append(ordered, g)
		}
		g.rows = append(g.rows, i)
	}
	return ordered, nil
}

// groupValues extracts the non-null numeric values of one assignment's
// input column within a group.
func groupValues(in *table.Frame, g *group, field string) ([]float64, error) {
	col, ok := in.ColumnIndex(field)
	if !ok {
		return nil, fmt.Errorf("native: no such column: %q", field)
	}
	vals := make([]float64, 0, len(g.rows))
	for _, i := range g.rows {
		v := in.Rows[i][col]
		if v == nil {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("native: column %q: %w", field, err)
		}
		vals = append(vals, f)
	}
	return vals, nil
}

func callField(a agg.Assignment) (name, field string, err error) {
	call, ok := a.Expr.(*agg.Call)
	if !ok || len(call.Args) != 1 {
		return "", "", fmt.Errorf("native: column %q: expression is not a single-column call", a.Name)
	}
	f, ok := call.Args[0].(*agg.Field)
	if !ok {
		return "", "", fmt.Errorf("native: column %q: argument is not a column reference", a.Name)
	}
	return call.Name, f.Name, nil
}

func foldGroup(in *table.Frame, g *group, a agg.Assignment) (interface{}, error) {
	if _, ok := a.Expr.(*agg.Count); ok {
		return float64(len(g.rows)), nil
	}
	name, field, err := callField(a)
	if err != nil {
		return nil, err
	}
	vals, err := groupValues(in, g, field)
	if err != nil {
		return nil, err
	}
	return summaryStat(name, vals, a.Name)
}

func reduceGroup(in *table.Frame, g *group, a agg.Assignment, custom bool) (interface{}, error) {
	if _, ok := a.Expr.(*agg.Count); ok {
		return float64(len(g.rows)), nil
	}
	name, field, err := callField(a)
	if err != nil {
		return nil, err
	}
	vals, err := groupValues(in, g, field)
	if err != nil {
		return nil, err
	}
	if v, err := summaryStat(name, vals, a.Name); err == nil {
		return v, nil
	}
	if !custom {
		return nil, fmt.Errorf("native: column %q: unsupported statistic %q for this method", a.Name, name)
	}
	fn, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("native: column %q: unknown aggregate function %q", a.Name, name)
	}
	return fn(vals)
}

// summaryStat computes one of the built-in statistics over vals.
// Variance and stdev are the sample (n-1) forms.
func summaryStat(name string, vals []float64, column string) (interface{}, error) {
	switch name {
	case "count":
		return float64(len(vals)), nil
	case "sum":
		var sum float64
		for _, v := range vals {
			sum += v
		}
		return sum, nil
	case "mean":
		if len(vals) == 0 {
			return nil, nil
		}
		var sum float64
		for _, v := range vals {
			sum += v
		}
		return sum / float64(len(vals)), nil
	case "min":
		if len(vals) == 0 {
			return nil, nil
		}
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m, nil
	case "max":
		if len(vals) == 0 {
			return nil, nil
		}
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m, nil
	case "variance", "stdev":
		if len(vals) < 2 {
			return nil, nil
		}
		// Welford's update keeps this numerically stable for the
		// wide-magnitude columns big tables tend to have.
		var n, mean, m2 float64
		for _, v := range vals {
			n++
			d := v - mean
			mean += d / n
			m2 += d * (v - mean)
		}
		variance := m2 / (n - 1)
		if name == "stdev" {
			return math.Sqrt(variance), nil
		}
		return variance, nil
	}
	return nil, fmt.Errorf("native: column %q: %q is not a built-in statistic", column, name)
}
