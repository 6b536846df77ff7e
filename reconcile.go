package symdex

import (
	"context"
	"fmt"
	"os"
)

// RebuildIncremental reconciles the store against the current workspace and
// enqueues the minimal set of indexing work: new files and files whose
// modification time moved beyond the tolerance window are queued; files that
// disappeared (or no longer pass the filters) are deleted immediately. Runs
// at startup and whenever files change outside the watcher's view.
func (e *Engine) RebuildIncremental(ctx context.Context) error {
	discovered := e.discover(ctx)

	current := make(map[string]int64, len(discovered))
	for _, path := range discovered {
		info, err := os.Stat(path)
		if err != nil {
			// Vanished between discovery and stat; the next cycle picks it up.
			continue
		}
		current[path] = info.ModTime().UnixMilli()
	}

	stored, err := e.store.AllFiles()
	if err != nil {
		e.selfHeal(err)
		return fmt.Errorf("symdex: load indexed files: %w", err)
	}

	storedByPath := make(map[string]int64, len(stored))
	for _, f := range stored {
		storedByPath[f.Path] = f.MTime
	}

	var toIndex []string
	for path, mtime := range current {
		storedMTime, ok := storedByPath[path]
		if !ok {
			toIndex = append(toIndex, path)
			continue
		}
		if absDiff(mtime, storedMTime) > mtimeToleranceMs {
			toIndex = append(toIndex, path)
		}
	}

	for _, f := range stored {
		if _, ok := current[f.Path]; ok {
			continue
		}
		if err := e.store.DeleteFile(f.Path); err != nil {
			e.log.Error("deleting stale file failed", "path", f.Path, "err", err)
			e.selfHeal(err)
		}
	}

	if len(toIndex) == 0 {
		e.events.emitProgress(100)
		e.events.emitComplete()
		return nil
	}

	e.log.Debug("reconciliation queued files", "count", len(toIndex))
	e.enqueue(toIndex)
	e.kickOrFinish()
	return nil
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
