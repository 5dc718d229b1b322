// Package related computes, for every post in a batch, the posts that share
// the most tags with it.
package related

// Item is a tagged post. Tags may repeat; every occurrence counts.
type Item struct {
	ID    string   `json:"_id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// Record is the output for one item. Tags aliases the item's own slice and
// Related points into the input slice.
type Record struct {
	ID      string   `json:"_id"`
	Tags    []string `json:"tags"`
	Related []*Item  `json:"related"`
}

// Count is the number of tag occurrences two items share.
type Count uint32

type Candidate struct {
	Index uint32
	Count Count
}
