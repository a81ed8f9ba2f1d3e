// Package engine defines the contract between the summarize dispatcher
// and an aggregation engine.  The five procedures correspond to the
// five execution methods; which one gets called is decided upstream by
// method selection, never by the engine itself.
package engine

import (
	"context"

	"github.com/stratadb/strata/agg"
	"github.com/stratadb/strata/table"
)

// Request carries everything an engine procedure needs.  Args is an
// opaque pass-through of caller-supplied low-level engine options; the
// dispatcher does not interpret it.
type Request struct {
	Input *table.Table
	Aggs  agg.Spec
	Keys  []string
	Stats agg.StatisticSet
	Args  map[string]interface{}
}

// Raw is an engine's direct output: either an in-memory frame or a
// file-backed table the engine created itself.  The materializer
// consumes it; once materialization succeeds the raw artifact may be
// deleted.
type Raw interface {
	raw()
}

type RawFrame struct {
	Frame *table.Frame
}

type RawFile struct {
	Table *table.Table
}

func (*RawFrame) raw() {}
func (*RawFile) raw()  {}

// Engine is the external aggregation engine.  Failures propagate to
// the caller unmodified; no procedure is retried.
type Engine interface {
	// Cube computes cube-compatible statistics over grouped input.
	Cube(context.Context, *Request) (Raw, error)
	// Summary computes summary-compatible statistics in a single
	// pass; grouping is optional.
	Summary(context.Context, *Request) (Raw, error)
	// LabelSummary runs a summary over pasted-together grouping-key
	// labels, sidestepping the cardinality ceiling of Cube and
	// Summary.
	LabelSummary(context.Context, *Request) (Raw, error)
	// SplitApply splits the input by group and applies arbitrary
	// named aggregate functions per group.
	SplitApply(context.Context, *Request) (Raw, error)
	// SplitSummary splits the input by group and runs a summary per
	// group; slowest, but scales to extreme cardinality.
	SplitSummary(context.Context, *Request) (Raw, error)
}
