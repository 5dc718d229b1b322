package source

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/related"
)

// maxReported caps how many offending posts a ValidationError lists per
// problem.
const maxReported = 5

// ValidationError holds per-problem descriptions of a loaded batch.
type ValidationError struct {
	Problems map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Problems))
	for k := range e.Problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Problems[k]))
	}
	return strings.Join(parts, "; ")
}

// Validate reports posts with an empty ID and IDs used by more than one post.
// Neither breaks the computation, which works on positions, but both make the
// output ambiguous to consumers keyed by ID.
func Validate(items []related.Item) error {
	problems := make(map[string]string)

	var empty []string
	seen := make(map[string]int, len(items))
	var dups []string
	for i, it := range items {
		if strings.TrimSpace(it.ID) == "" {
			empty = append(empty, fmt.Sprintf("#%d", i))
			continue
		}
		if first, ok := seen[it.ID]; ok {
			dups = append(dups, fmt.Sprintf("%q (#%d, #%d)", it.ID, first, i))
			continue
		}
		seen[it.ID] = i
	}
	if len(empty) > 0 {
		problems["empty_id"] = summarize(empty)
	}
	if len(dups) > 0 {
		problems["duplicate_id"] = summarize(dups)
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func summarize(list []string) string {
	if len(list) <= maxReported {
		return strings.Join(list, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(list[:maxReported], ", "), len(list)-maxReported)
}
