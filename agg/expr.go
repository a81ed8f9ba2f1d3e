// Package agg models named aggregate expressions the way the front end
// hands them to the summarize layer: an ordered list of assignments
// from output-column name to expression.  Parsing user syntax into
// this form happens upstream; this package only classifies and
// validates the parsed form.
package agg

import (
	"fmt"
	"strings"
)

type Expr interface {
	String() string
}

// Field is a bare reference to an input column.
type Field struct {
	Name string
}

// Count is the zero-argument counting builtin, written n() by callers.
type Count struct{}

// Call applies a named aggregate function to its arguments.
type Call struct {
	Name string
	Args []Expr
}

// Literal and Binary exist so derived expressions such as sum(x+y) are
// representable; the validator rejects them before dispatch.
type Literal struct {
	Value interface{}
}

type Binary struct {
	Op       string
	LHS, RHS Expr
}

func (f *Field) String() string { return f.Name }

func (*Count) String() string { return "n()" }

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ","))
}

func (l *Literal) String() string { return fmt.Sprint(l.Value) }

func (b *Binary) String() string {
	return fmt.Sprintf("%s%s%s", b.LHS, b.Op, b.RHS)
}

// NewCall is a convenience for the common single-column form.
func NewCall(name, field string) *Call {
	return &Call{Name: name, Args: []Expr{&Field{Name: field}}}
}
