package summarize

import (
	"fmt"

	"github.com/stratadb/strata/agg"
)

// Method identifies one of the five execution methods.
type Method int

const (
	// MethodCube computes cube-compatible statistics over grouped
	// input; fastest, requires grouping.
	MethodCube Method = iota + 1
	// MethodSummary is a single-pass summary; fast, grouping
	// optional.
	MethodSummary
	// MethodLabelSummary runs a summary over pasted-together
	// grouping-key labels, bypassing the key-cardinality ceiling of
	// methods 1 and 2.  Reached only by explicit selection.
	MethodLabelSummary
	// MethodSplitApply splits by group and applies arbitrary named
	// functions per group; slow but unrestricted.
	MethodSplitApply
	// MethodSplitSummary splits by group and summarizes per group;
	// slowest, scales to extreme cardinality.  Reached only by
	// explicit selection.
	MethodSplitSummary
)

var cubeStats = []string{"mean", "sum", "count"}

var summaryStats = []string{"mean", "sum", "count", "stdev", "variance", "min", "max"}

// Automatic is the Request.Method value asking for automatic method
// selection.
const Automatic = 0

// Select maps a statistic set, an optional explicit selector, and the
// grouping keys to the method that will run.  An explicit selector
// whose preconditions do not hold is not an error: a warning naming
// the unmet precondition is returned and selection falls back to
// automatic mode.  The fallback is a single bounded retry; automatic
// mode is total, so no input can loop.
func Select(stats agg.StatisticSet, explicit int, keys []string) (Method, []string, error) {
	if explicit == Automatic {
		return selectAuto(stats, keys), nil, nil
	}
	if explicit < int(MethodCube) || explicit > int(MethodSplitSummary) {
		return 0, nil, &InvalidMethodError{Selector: explicit}
	}
	method := Method(explicit)
	if warning := checkMethod(method, stats, keys); warning != "" {
		return selectAuto(stats, keys), []string{warning}, nil
	}
	return method, nil, nil
}

func selectAuto(stats agg.StatisticSet, keys []string) Method {
	switch {
	case len(keys) > 0 && stats.SubsetOf(cubeStats...):
		return MethodCube
	case stats.SubsetOf(summaryStats...):
		return MethodSummary
	default:
		return MethodSplitApply
	}
}

// checkMethod returns a warning describing the first unmet
// precondition of an explicitly selected method, or "" if the method
// can run.
func checkMethod(method Method, stats agg.StatisticSet, keys []string) string {
	switch method {
	case MethodCube, MethodLabelSummary:
		if len(keys) == 0 {
			return fmt.Sprintf("method %d requires grouping keys; selecting automatically", int(method))
		}
	}
	switch method {
	case MethodCube:
		if !stats.SubsetOf(cubeStats...) {
			return fmt.Sprintf("method %d supports only mean, sum, and count; selecting automatically", int(method))
		}
	case MethodSummary, MethodSplitSummary:
		if !stats.SubsetOf(summaryStats...) {
			return fmt.Sprintf("method %d supports only built-in summary statistics; selecting automatically", int(method))
		}
	}
	return ""
}
