package related

// Selector extracts the k highest counts from an accumulator. Its window is
// reused between calls.
type Selector struct {
	window []Candidate
}

func NewSelector(k int) *Selector {
	return &Selector{window: make([]Candidate, k)}
}

// Select scans counts in ascending index order and returns the window, best
// first. The window starts as items 0..k-1 with count 0; a candidate only
// enters when it beats the current minimum, and it never passes a slot with
// an equal count, so the lower index wins ties. Slots no candidate displaced
// keep their placeholder. counts must hold at least k entries. The returned
// slice is overwritten by the next call.
func (s *Selector) Select(counts []Count) []Candidate {
	w := s.window
	for i := range w {
		w[i] = Candidate{Index: uint32(i)}
	}
	last := len(w) - 1
	var floor Count
	for j, c := range counts {
		if c <= floor {
			continue
		}
		i := last
		for i > 0 && w[i-1].Count < c {
			w[i] = w[i-1]
			i--
		}
		w[i] = Candidate{Index: uint32(j), Count: c}
		floor = w[last].Count
	}
	return w
}
