package artifact

import (
	"context"

	"programhub/internal/logging"
)

// Swap stages artifact changes that belong to one database write.
//
// New objects are stored immediately. Objects they replace are only released
// by Commit, which must run after the database commit that stopped referencing
// them. Rollback releases the staged objects instead.
type Swap struct {
	store   *Store
	staged  []string
	retired []string
	done    bool
}

// Begin starts a swap on s.
func (s *Store) Begin() *Swap {
	return &Swap{store: s}
}

// Put stores a fresh artifact as part of the swap.
func (w *Swap) Put(ctx context.Context, up Upload, kind Kind) (string, error) {
	ref, err := w.store.Put(ctx, up, kind)
	if err != nil {
		return "", err
	}
	w.staged = append(w.staged, ref)
	return ref, nil
}

// Replace stores up and schedules old for release on Commit.
// An empty old behaves like Put.
func (w *Swap) Replace(ctx context.Context, old string, up Upload, kind Kind) (string, error) {
	ref, err := w.Put(ctx, up, kind)
	if err != nil {
		return "", err
	}
	if old != "" {
		w.retired = append(w.retired, old)
	}
	return ref, nil
}

// Retire schedules ref for release on Commit without storing anything new.
func (w *Swap) Retire(ref string) {
	if ref != "" {
		w.retired = append(w.retired, ref)
	}
}

// Commit releases retired artifacts. Failures are logged and returned as the
// list of references left behind; they never undo the committed change.
func (w *Swap) Commit(ctx context.Context) []string {
	if w.done {
		return nil
	}
	w.done = true
	return w.release(ctx, w.retired, "retired")
}

// Rollback releases artifacts staged by this swap. Safe to call after Commit.
func (w *Swap) Rollback(ctx context.Context) {
	if w.done {
		return
	}
	w.done = true
	w.release(ctx, w.staged, "staged")
}

func (w *Swap) release(ctx context.Context, refs []string, reason string) []string {
	var leftover []string
	for _, ref := range refs {
		if err := w.store.Delete(ctx, ref); err != nil {
			logging.FromContext(ctx).Error("artifact release failed",
				"artifact", ref,
				"reason", reason,
				"error", err,
			)
			w.store.orphans.Inc()
			leftover = append(leftover, ref)
		}
	}
	return leftover
}
