package marketplace

import "context"

type undo func(ctx context.Context) error

// journal records how to reverse every mutation made by an operation.
type journal struct {
	entries []undo
}

func (j *journal) append(u undo) {
	j.entries = append(j.entries, u)
}

func (j *journal) length() int {
	return len(j.entries)
}

// revert undoes entries newer than mark, newest first, and returns the steps that failed.
func (j *journal) revert(ctx context.Context, mark int) []error {
	var failures []error
	for i := len(j.entries) - 1; i >= mark; i-- {
		if err := j.entries[i](ctx); err != nil {
			failures = append(failures, err)
		}
	}
	j.entries = j.entries[:mark]

	return failures
}
