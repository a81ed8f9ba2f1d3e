package summarize

import "fmt"

// InvalidMethodError reports an explicit method selector outside the
// valid 1-5 range.
type InvalidMethodError struct {
	Selector int
}

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("summarize: invalid method selector %d (must be 1 through 5)", e.Selector)
}

// UnexpectedWorkerOutputError reports that the engine produced a
// file-backed result for input on distributed storage.  Per-worker
// file outputs cannot be reassembled across distributed shards here,
// so there is no safe recovery.
type UnexpectedWorkerOutputError struct {
	Method Method
}

func (e *UnexpectedWorkerOutputError) Error() string {
	return fmt.Sprintf("summarize: method %d returned a file-backed result for distributed input", int(e.Method))
}
