package todo

import (
	"sort"

	"heartwork/internal/service"
)

// SortForDisplay returns a sorted copy of tasks: incomplete before completed,
// then daily tasks before the rest, then newest first. The input is not modified.
func SortForDisplay(tasks []service.Task) []service.Task {
	out := append([]service.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		if a.IsDefault != b.IsDefault {
			return a.IsDefault
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}
