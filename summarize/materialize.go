package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/ksuid"
	"github.com/stratadb/strata/engine"
	"github.com/stratadb/strata/pkg/storage"
	"github.com/stratadb/strata/table"
	"go.uber.org/multierr"
)

// materialize lands the engine's raw output in the representation and
// location the target asks for.  The input's location decides the
// path: local storage writes directly, a directly reachable
// distributed store streams shards in, and the remote-intermediary
// case stages a local scratch table and copies it across.  The second
// return value carries non-fatal degradation warnings.
func (s *Session) materialize(ctx context.Context, raw engine.Raw, target Target, loc Location) (*Result, []string, error) {
	if loc.Kind == KindLocal {
		return s.materializeLocal(ctx, raw, target, loc)
	}
	return s.materializeDistributed(ctx, raw, target, loc)
}

func (s *Session) materializeLocal(ctx context.Context, raw engine.Raw, target Target, loc Location) (*Result, []string, error) {
	cfg := s.Config.withDefaults()
	switch raw := raw.(type) {
	case *engine.RawFrame:
		if target.IsMemory() {
			return &Result{Rep: RepMemory, Frame: raw.Frame}, nil, nil
		}
		u, rep, err := s.resolveLocalTarget(target, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := table.Write(ctx, s.Local, u, raw.Frame, loc.Composite, cfg.BatchSize); err != nil {
			return nil, nil, err
		}
		return &Result{Rep: rep, Table: table.New(u, loc.Composite, nil)}, nil, nil
	case *engine.RawFile:
		return s.salvageLocalFile(ctx, raw.Table, target, cfg)
	}
	return nil, nil, fmt.Errorf("summarize: unknown raw result %T", raw)
}

// salvageLocalFile handles an engine that unexpectedly produced a
// file-backed result for local input.  Each branch is best-effort
// salvage and emits an advisory warning.
func (s *Session) salvageLocalFile(ctx context.Context, rawTable *table.Table, target Target, cfg Config) (*Result, []string, error) {
	switch {
	case target.IsMemory():
		frame, err := table.Read(ctx, s.Local, rawTable)
		if err != nil {
			return nil, nil, err
		}
		if err := table.Delete(ctx, s.Local, rawTable); err != nil {
			return nil, nil, err
		}
		warning := "engine returned a file-backed result for local input; loaded it into memory"
		return &Result{Rep: RepMemory, Frame: frame}, []string{warning}, nil
	case target.IsManaged():
		// The raw file already is a persistent local table, so adopt
		// it as the managed artifact rather than copying it around.
		warning := "engine returned a file-backed result for local input; adopting it as the managed table"
		return &Result{Rep: RepManaged, Table: rawTable}, []string{warning}, nil
	default:
		u, _, err := s.resolveLocalTarget(target, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := moveTable(ctx, s.Local, rawTable, u); err != nil {
			return nil, nil, err
		}
		warning := "engine returned a file-backed result for local input; moved it to the requested path"
		return &Result{Rep: RepNamed, Table: table.New(u, rawTable.Composite, nil)}, []string{warning}, nil
	}
}

func (s *Session) resolveLocalTarget(target Target, cfg Config) (*storage.URI, Representation, error) {
	if path, ok := target.Path(); ok {
		u, err := storage.ParseURI(path)
		if err != nil {
			return nil, 0, err
		}
		return u, RepNamed, nil
	}
	u, err := storage.ParseURI(cfg.ManagedDir)
	if err != nil {
		return nil, 0, err
	}
	return u.AppendPath(managedName()), RepManaged, nil
}

func (s *Session) materializeDistributed(ctx context.Context, raw engine.Raw, target Target, loc Location) (*Result, []string, error) {
	rawFrame, ok := raw.(*engine.RawFrame)
	if !ok {
		// The dispatcher enforces this before materialization; keep
		// the check so the materializer is safe standalone.
		return nil, nil, &UnexpectedWorkerOutputError{}
	}
	frame := rawFrame.Frame
	if target.IsMemory() {
		return &Result{Rep: RepMemory, Frame: frame}, nil, nil
	}
	dst, rep, err := resolveDistributedTarget(target, loc)
	if err != nil {
		return nil, nil, err
	}
	cfg := s.Config.withDefaults()
	if loc.Kind == KindDistributed {
		if err := table.Write(ctx, s.Distributed, dst, frame, loc.Composite, cfg.BatchSize); err != nil {
			return nil, nil, err
		}
	} else if err := s.copyViaScratch(ctx, frame, dst, loc, cfg); err != nil {
		return nil, nil, err
	}
	// The produced table carries the distributed binding of the
	// original input, never that of any local intermediary.
	return &Result{Rep: rep, Table: table.New(dst, loc.Composite, nil)}, nil, nil
}

// resolveDistributedTarget resolves the output URI on the distributed
// store: a named absolute URI is taken as is, a named relative path
// resolves under the input's binding, and an unspecified target gets a
// generated managed name under it.
func resolveDistributedTarget(target Target, loc Location) (*storage.URI, Representation, error) {
	if path, ok := target.Path(); ok {
		if u, err := storage.ParseURI(path); err == nil && !u.HasScheme(storage.FileScheme) {
			return u, RepNamed, nil
		}
		if strings.Contains(path, "://") {
			return nil, 0, fmt.Errorf("summarize: invalid distributed target %q", path)
		}
		return loc.Base.AppendPath(strings.Split(strings.Trim(path, "/"), "/")...), RepNamed, nil
	}
	return loc.Base.AppendPath(".managed", managedName()), RepManaged, nil
}

// copyViaScratch is the remote-intermediary write path: stage the
// frame as a uniquely named scratch table on the local store, copy it
// across through the connection, and delete the scratch table on
// every exit, success and failure alike.
func (s *Session) copyViaScratch(ctx context.Context, frame *table.Frame, dst *storage.URI, loc Location, cfg Config) (err error) {
	scratchDir, err := storage.ParseURI(cfg.ScratchDir)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s-%s", dst.Base(), ksuid.New())
	scratch := table.New(scratchDir.AppendPath(name), loc.Composite, nil)
	defer func() {
		if derr := table.Delete(ctx, s.Local, scratch); derr != nil && !errors.Is(derr, storage.ErrNotFound) {
			err = multierr.Append(err, derr)
		}
	}()
	if err := table.Write(ctx, s.Local, scratch.URI, frame, loc.Composite, cfg.BatchSize); err != nil {
		return err
	}
	path, ok := s.Remote.RelPath(dst)
	if !ok {
		return fmt.Errorf("summarize: %s: not addressed by the remote connection %s", dst, s.Remote.ClientHostURL())
	}
	return s.Remote.CopyFrom(ctx, s.Local, scratch, path)
}

// moveTable relocates a table within one engine by object copy and
// delete; engines have no rename primitive.
func moveTable(ctx context.Context, eng storage.Engine, src *table.Table, dst *storage.URI) error {
	if !src.Composite {
		if err := storage.Copy(ctx, eng, src.URI, eng, dst); err != nil {
			return err
		}
		return eng.Delete(ctx, src.URI)
	}
	infos, err := eng.List(ctx, src.URI)
	if err != nil {
		return err
	}
	if err := eng.DeleteByPrefix(ctx, dst); err != nil {
		return err
	}
	for _, info := range infos {
		if err := storage.Copy(ctx, eng, src.URI.AppendPath(info.Name), eng, dst.AppendPath(info.Name)); err != nil {
			return err
		}
	}
	return eng.DeleteByPrefix(ctx, src.URI)
}

func managedName() string {
	return "summarize-" + ksuid.New().String()
}
