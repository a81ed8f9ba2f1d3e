package summarize

import (
	"fmt"
	"strings"

	"github.com/stratadb/strata/pkg/storage"
	"github.com/stratadb/strata/table"
)

// LocationKind classifies where an input table's backing store is and
// how this process can reach it.
type LocationKind int

const (
	// KindLocal is the local random-access store.
	KindLocal LocationKind = iota
	// KindDistributed is a distributed store this process can write
	// directly.
	KindDistributed
	// KindRemote is a distributed store reachable only through the
	// intermediary service.
	KindRemote
)

func (k LocationKind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindDistributed:
		return "distributed"
	case KindRemote:
		return "distributed-via-remote"
	}
	return fmt.Sprintf("LocationKind(%d)", int(k))
}

// Location captures the storage topology of one call's input: its
// kind, whether the table is sharded, and the store binding output
// tables inherit.  It is derived once per call and never changes.
type Location struct {
	Kind      LocationKind
	Composite bool
	// Base is the prefix relative table names resolve under: the
	// parent of the input table's URI.
	Base *storage.URI
}

// locate classifies t against the session's reach.  An s3 table needs
// the direct distributed engine; a service-addressed table needs the
// remote connection.
func (s *Session) locate(t *table.Table) (Location, error) {
	loc := Location{Composite: t.Composite, Base: parent(t.URI)}
	switch {
	case t.URI.HasScheme(storage.FileScheme):
		loc.Kind = KindLocal
	case t.URI.HasScheme(storage.S3Scheme):
		if s.Distributed == nil {
			return Location{}, fmt.Errorf("summarize: %s: no direct access to distributed storage configured", t.URI)
		}
		loc.Kind = KindDistributed
	case t.URI.HasScheme(storage.HTTPScheme) || t.URI.HasScheme(storage.HTTPSScheme):
		if s.Remote == nil {
			return Location{}, fmt.Errorf("summarize: %s: no remote connection configured", t.URI)
		}
		loc.Kind = KindRemote
	default:
		return Location{}, fmt.Errorf("summarize: %s: unsupported storage scheme %q", t.URI, t.URI.Scheme)
	}
	return loc, nil
}

// reader returns the engine able to read tables at loc.
func (s *Session) reader(loc Location) storage.Engine {
	switch loc.Kind {
	case KindDistributed:
		return s.Distributed
	case KindRemote:
		return s.remoteEngine()
	default:
		return s.Local
	}
}

func parent(u *storage.URI) *storage.URI {
	p := *u
	path := p.Path
	for len(path) > 0 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		p.Path = path[:i]
	}
	return &p
}
