package agg

import "fmt"

// Assignment names one output column and the aggregate expression that
// produces it.
type Assignment struct {
	Name string
	Expr Expr
}

// Spec is an ordered aggregate specification.  Order matters: it fixes
// the column order of the result.
type Spec []Assignment

// CountName is the statistic name the counting builtin contributes to
// a Spec's statistic set.
const CountName = "count"

// StatisticSet is the set of aggregate-function names appearing in a
// Spec.  It exists only to classify a request against the execution
// methods; it plays no part in computation.
type StatisticSet map[string]struct{}

func (s StatisticSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// SubsetOf reports whether every statistic in s appears in names.
func (s StatisticSet) SubsetOf(names ...string) bool {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}
	for n := range s {
		if _, ok := allowed[n]; !ok {
			return false
		}
	}
	return true
}

// Statistics extracts the statistic set of a Spec.  It assumes the
// Spec has passed Validate; expressions of any other shape contribute
// nothing.
func (s Spec) Statistics() StatisticSet {
	set := make(StatisticSet)
	for _, a := range s {
		switch e := a.Expr.(type) {
		case *Count:
			set[CountName] = struct{}{}
		case *Call:
			set[e.Name] = struct{}{}
		}
	}
	return set
}

// Columns returns the output-column names in Spec order.
func (s Spec) Columns() []string {
	names := make([]string, len(s))
	for i, a := range s {
		names[i] = a.Name
	}
	return names
}

// UnsupportedExpressionError reports an aggregate expression the
// engine cannot execute, naming the output column that carries it.
type UnsupportedExpressionError struct {
	Column string
	Expr   Expr
}

func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("summarize: unsupported aggregate expression for column %q: %s (expressions must be n() or a single-column aggregate call)", e.Column, e.Expr)
}

// Validate checks that every expression in s is either the counting
// builtin or a function call whose sole argument is a bare column
// reference.  Any other shape fails immediately, before anything is
// dispatched to the engine.
func Validate(s Spec) error {
	for _, a := range s {
		if !canonical(a.Expr) {
			return &UnsupportedExpressionError{Column: a.Name, Expr: a.Expr}
		}
	}
	return nil
}

func canonical(e Expr) bool {
	switch e := e.(type) {
	case *Count:
		return true
	case *Call:
		if len(e.Args) != 1 {
			return false
		}
		_, ok := e.Args[0].(*Field)
		return ok
	}
	return false
}
