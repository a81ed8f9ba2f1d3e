// Package summarize dispatches group-aggregation requests to an
// execution engine and lands the result in the representation and
// location the caller asked for, across local, distributed, and
// remote-intermediary storage.
package summarize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/stratadb/strata/agg"
	"github.com/stratadb/strata/api/client"
	"github.com/stratadb/strata/engine"
	"github.com/stratadb/strata/engine/native"
	"github.com/stratadb/strata/pkg/storage"
	"github.com/stratadb/strata/table"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of rows per write batch and per
// composite shard.
const DefaultBatchSize = 10000

// Config carries the process-wide tunables of the materializer.  The
// zero value selects the documented defaults.
type Config struct {
	// ScratchDir is the local directory scratch tables pass through
	// on the remote-intermediary path.  Default <tmpdir>/strata/scratch.
	ScratchDir string
	// ManagedDir is the local directory managed tables are created
	// under.  Default <tmpdir>/strata/managed.
	ManagedDir string
	// BatchSize is the number of rows per write batch; it also sizes
	// composite shards.  Default DefaultBatchSize.
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.ScratchDir == "" {
		c.ScratchDir = filepath.Join(os.TempDir(), "strata", "scratch")
	}
	if c.ManagedDir == "" {
		c.ManagedDir = filepath.Join(os.TempDir(), "strata", "managed")
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// Session binds together the storage reach of the calling process.
// Local must always be set.  Distributed is set when the process can
// write the distributed store itself; Remote when it can only reach it
// through the intermediary service.  Engine defaults to the native
// in-process engine reading through whichever engine can see the
// input.
type Session struct {
	Local       storage.Engine
	Distributed storage.Engine
	Remote      *client.Connection
	Engine      engine.Engine
	Config      Config
	Logger      *zap.Logger

	remoteOnce sync.Once
	remoteEng  storage.Engine
}

// Request is one summarize call.  Method is an explicit selector 1-5
// or Automatic.  Args passes low-level engine options through
// uninterpreted.
type Request struct {
	Input  *table.Table
	Aggs   agg.Spec
	Target Target
	Method int
	Args   map[string]interface{}
}

// Representation tags how a Result is held so downstream stages know
// its storage contract, in particular whether cleanup ownership stays
// internal.
type Representation int

const (
	// RepMemory: an in-memory frame, nothing persisted.
	RepMemory Representation = iota
	// RepManaged: a persistent table whose lifecycle this layer owns.
	RepManaged
	// RepNamed: a persistent table at a caller-chosen location.
	RepNamed
)

// Result is the materialized output of a summarize call.  Frame is set
// for RepMemory, Table otherwise.  Warnings carries the advisory
// diagnostics accumulated along the way.
type Result struct {
	Rep      Representation
	Frame    *table.Frame
	Table    *table.Table
	Warnings []string
}

// Keys returns the grouping keys of the result.
func (r *Result) Keys() []string {
	if r.Rep == RepMemory {
		return r.Frame.Keys
	}
	return r.Table.Keys
}

// Summarize validates the aggregate spec, selects and dispatches the
// execution method, materializes the engine's raw output per the
// caller's target, and restores grouping metadata on the result.
func (s *Session) Summarize(ctx context.Context, req *Request) (*Result, error) {
	if req.Input == nil {
		return nil, errors.New("summarize: no input table")
	}
	if err := agg.Validate(req.Aggs); err != nil {
		return nil, err
	}
	stats := req.Aggs.Statistics()
	method, warnings, err := Select(stats, req.Method, req.Input.Keys)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		s.logger().Warn("Method selection fell back to automatic mode", zap.String("reason", w))
	}
	loc, err := s.locate(req.Input)
	if err != nil {
		return nil, err
	}
	raw, err := s.dispatch(ctx, method, req, stats, loc)
	if err != nil {
		return nil, err
	}
	if loc.Kind != KindLocal {
		if _, ok := raw.(*engine.RawFile); ok {
			return nil, &UnexpectedWorkerOutputError{Method: method}
		}
	}
	res, warns, err := s.materialize(ctx, raw, req.Target, loc)
	if err != nil {
		return nil, err
	}
	for _, w := range warns {
		s.logger().Warn("Materialization degraded", zap.String("reason", w))
	}
	res.Warnings = append(warnings, warns...)
	s.regroup(res, req.Input.Keys)
	return res, nil
}

// dispatch routes the finalized method to its engine procedure.  Any
// engine failure propagates unmodified; there are no retries.
func (s *Session) dispatch(ctx context.Context, method Method, req *Request, stats agg.StatisticSet, loc Location) (engine.Raw, error) {
	ereq := &engine.Request{
		Input: req.Input,
		Aggs:  req.Aggs,
		Keys:  req.Input.Keys,
		Stats: stats,
		Args:  req.Args,
	}
	eng := s.Engine
	if eng == nil {
		eng = native.New(s.reader(loc))
	}
	switch method {
	case MethodCube:
		return eng.Cube(ctx, ereq)
	case MethodSummary:
		return eng.Summary(ctx, ereq)
	case MethodLabelSummary:
		return eng.LabelSummary(ctx, ereq)
	case MethodSplitApply:
		return eng.SplitApply(ctx, ereq)
	case MethodSplitSummary:
		return eng.SplitSummary(ctx, ereq)
	}
	return nil, &InvalidMethodError{Selector: int(method)}
}

func (s *Session) remoteEngine() storage.Engine {
	s.remoteOnce.Do(func() {
		if s.Remote != nil {
			s.remoteEng = client.NewEngine(s.Remote)
		}
	})
	return s.remoteEng
}

func (s *Session) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
