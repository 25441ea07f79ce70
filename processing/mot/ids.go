package mot

import (
	"fmt"
	"sort"
)

// AssignTrackIDs numbers keys 1..N in ascending order of their string form.
// The result only depends on the key set, so adding or removing a track
// renumbers every track that sorts after it.
func AssignTrackIDs[K comparable](keys []K) map[K]int {
	type repr struct{ plain, goSyntax string }

	uniq := make(map[K]repr, len(keys))
	for _, k := range keys {
		uniq[k] = repr{fmt.Sprint(k), fmt.Sprintf("%#v", k)}
	}

	sorted := make([]K, 0, len(uniq))
	for k := range uniq {
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool {
		a, b := uniq[sorted[i]], uniq[sorted[j]]
		if a.plain != b.plain {
			return a.plain < b.plain
		}
		return a.goSyntax < b.goSyntax
	})

	ids := make(map[K]int, len(sorted))
	for i, k := range sorted {
		ids[k] = i + 1
	}
	return ids
}
