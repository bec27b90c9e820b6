package persist

import "github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"

// Merge reconciles the local and remote snapshots into one collection.
//
// For an id present on both sides the copy with the larger UpdatedAt wins
// entirely; field-level merging is never attempted. Ties and missing
// timestamps prefer the remote copy. A task only present locally is treated
// as not yet pushed: it is kept and returned in toPush for submission as a
// new remote write. A task only present remotely is adopted as-is.
//
// Output order is remote order followed by unpushed local tasks in local
// order, so merging the same inputs twice yields the same result.
func Merge(local, remoteTasks []model.Task) (merged, toPush []model.Task) {
	localByID := make(map[string]model.Task, len(local))
	for _, t := range local {
		localByID[t.ID] = t
	}

	seen := make(map[string]bool, len(remoteTasks))
	merged = make([]model.Task, 0, len(local)+len(remoteTasks))
	for _, rt := range remoteTasks {
		seen[rt.ID] = true
		lt, inLocal := localByID[rt.ID]
		if inLocal && lt.UpdatedAt.After(rt.UpdatedAt) {
			merged = append(merged, lt.Clone())
			continue
		}
		merged = append(merged, rt.Clone())
	}

	for _, lt := range local {
		if seen[lt.ID] {
			continue
		}
		merged = append(merged, lt.Clone())
		toPush = append(toPush, lt.Clone())
	}
	return merged, toPush
}
