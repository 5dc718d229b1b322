package related

// TagIndex maps a tag to the indices of the items carrying it, in input
// order. It is read-only once built and safe for concurrent lookups.
type TagIndex struct {
	postings    map[string][]uint32
	occurrences int
}

// BuildTagIndex makes a single forward pass over items. An item listing a
// tag twice appears twice in that tag's posting list.
func BuildTagIndex(items []Item) *TagIndex {
	ix := &TagIndex{
		postings: make(map[string][]uint32),
	}
	for idx, item := range items {
		for _, tag := range item.Tags {
			ix.postings[tag] = append(ix.postings[tag], uint32(idx))
			ix.occurrences++
		}
	}
	return ix
}

func (ix *TagIndex) Lookup(tag string) []uint32 {
	return ix.postings[tag]
}

// Tags returns the number of distinct tags.
func (ix *TagIndex) Tags() int {
	return len(ix.postings)
}

// Occurrences returns the total number of tag occurrences indexed.
func (ix *TagIndex) Occurrences() int {
	return ix.occurrences
}
