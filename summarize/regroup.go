package summarize

// Regroup returns the grouping keys a summarize result carries: the
// operation consumes the innermost grouping level, so k input keys
// leave the first k-1.  Metadata only; no data moves.
func Regroup(keys []string) []string {
	if len(keys) <= 1 {
		return nil
	}
	return keys[:len(keys)-1]
}

func (s *Session) regroup(res *Result, inputKeys []string) {
	keys := Regroup(inputKeys)
	if res.Rep == RepMemory {
		res.Frame.Keys = keys
		return
	}
	res.Table.Keys = keys
}
