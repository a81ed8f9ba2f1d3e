package native

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/axiomhq/hyperloglog"
)

// Func is a user-registered aggregate: it reduces the values of one
// column within one group to a single number.  Only the split-apply
// method ever reaches the registry; the other methods are restricted
// to the built-in statistics before dispatch.
type Func func(values []float64) (float64, error)

var (
	funcsMu sync.RWMutex
	funcs   = map[string]Func{}
)

func Register(name string, fn Func) {
	funcsMu.Lock()
	defer funcsMu.Unlock()
	funcs[name] = fn
}

func Lookup(name string) (Func, bool) {
	funcsMu.RLock()
	defer funcsMu.RUnlock()
	fn, ok := funcs[name]
	return fn, ok
}

func init() {
	// dcount uses hyperloglog to approximate the count of unique
	// values for a column.
	Register("dcount", func(values []float64) (float64, error) {
		sketch := hyperloglog.New()
		b := make([]byte, 8)
		for _, v := range values {
			binary.BigEndian.PutUint64(b, math.Float64bits(v))
			sketch.Insert(b)
		}
		return float64(sketch.Estimate()), nil
	})
	Register("median", func(values []float64) (float64, error) {
		if len(values) == 0 {
			return 0, fmt.Errorf("median of empty group")
		}
		s := append([]float64(nil), values...)
		sort.Float64s(s)
		n := len(s)
		if n%2 == 1 {
			return s[n/2], nil
		}
		return (s[n/2-1] + s[n/2]) / 2, nil
	})
}
