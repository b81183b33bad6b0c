package gtsops

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/gts/internal/checksum"
	"github.com/starford/gts/internal/storage"
)

// ReloadCallback is called after each watcher-driven store reload.
type ReloadCallback func()

// Watch starts an fsnotify watcher on the source roots and reloads the
// store when artifact files change, until ctx is cancelled. Events are
// debounced so a burst of writes triggers one reload; a reload whose
// artifact checksums match the previous snapshot is skipped. It calls cb
// (if non-nil) after each completed reload.
//
// New directories created at runtime are automatically added to the watch
// list.
func Watch(ctx context.Context, ops *Ops, roots []string, logger *slog.Logger, cb ReloadCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range roots {
		if err := addDirsRecursive(w, root); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.Any("roots", roots))

	lastSums := snapshot(ops.Source(), logger)

	// reloadTimer debounces bursts of file events into one reload.
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			sums := snapshot(ops.Source(), logger)
			if checksum.Equal(lastSums, sums) {
				logger.Debug("watcher: no content change, reload skipped")
				continue
			}
			lastSums = sums
			if err := ops.Reload(); err != nil {
				logger.Warn("watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("watcher: store reloaded", slog.Int("entities", ops.Store().Len()))
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					scheduleReload()
					continue
				}
			}

			if !storage.IsArtifact(ev.Name) {
				continue
			}
			logger.Debug("watcher: artifact event",
				slog.String("path", ev.Name),
				slog.String("op", ev.Op.String()))
			scheduleReload()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// snapshot maps artifact path to checksum for change detection.
func snapshot(src storage.Source, logger *slog.Logger) map[string]string {
	locs, err := src.List()
	if err != nil {
		logger.Warn("watcher: snapshot failed", slog.String("error", err.Error()))
		return nil
	}
	sums := make(map[string]string, len(locs))
	for _, l := range locs {
		sums[l.Path] = l.Checksum
	}
	return sums
}

// addDirsRecursive adds root and all directories under it to the watcher.
// A root may also be a single file.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
