package summarize

// Target is the caller's three-way output intent.  The zero value is
// the unspecified target: a new managed table, invisible to the
// caller, owned by this layer.
type Target struct {
	kind targetKind
	path string
}

type targetKind int

const (
	targetManaged targetKind = iota
	targetMemory
	targetNamed
)

// ToMemory requests the result as an in-memory frame; nothing is
// persisted.
func ToMemory() Target {
	return Target{kind: targetMemory}
}

// ToPath requests the result be persisted at path, overwriting any
// table already there.
func ToPath(path string) Target {
	return Target{kind: targetNamed, path: path}
}

func (t Target) IsMemory() bool { return t.kind == targetMemory }

func (t Target) IsManaged() bool { return t.kind == targetManaged }

// Path returns the requested location of a named target.
func (t Target) Path() (string, bool) {
	return t.path, t.kind == targetNamed
}
