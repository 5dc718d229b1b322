package related

// Accumulator holds one shared-tag counter per item. A single Accumulator is
// reused for every item a worker processes and must not be shared between
// goroutines.
type Accumulator struct {
	counts []Count
	dirty  bool
}

func NewAccumulator(n int) *Accumulator {
	return &Accumulator{counts: make([]Count, n)}
}

// Reset zeroes every counter.
func (a *Accumulator) Reset() {
	clear(a.counts)
	a.dirty = false
}

// Scan fills the counters for the item at self: after it returns, counts[j]
// is the number of tag occurrences self shares with j, and counts[self] is 0.
// Counters left over from a previous scan are cleared first; a fresh
// accumulator skips that pass.
func (a *Accumulator) Scan(self int, tags []string, ix *TagIndex) {
	if a.dirty {
		a.Reset()
	}
	a.dirty = true
	for _, tag := range tags {
		for _, other := range ix.Lookup(tag) {
			a.counts[other]++
		}
	}
	a.counts[self] = 0
}

// Counts exposes the counter slice. It is overwritten by the next Scan.
func (a *Accumulator) Counts() []Count {
	return a.counts
}
