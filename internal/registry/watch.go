package registry

import (
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a catalog from a manifest directory whenever its files
// change, using fsnotify the same way the teacher hot-reloads workspace
// files. Scan is supplied by the caller since how a manifest file becomes
// Entry values is domain-specific (this system loads one JSON tool
// manifest per file; see cmd/agentcore for the concrete scan function).
type Watcher struct {
	watcher *fsnotify.Watcher
	reg     *Registry
	scan    func(dir string) ([]Entry, error)
	log     *slog.Logger
}

// WatchDir starts watching dir for file changes and re-scanning the
// catalog on each one. The returned Watcher must be closed by the caller
// when done. Intended for `tools list --watch` and long-running agent
// processes that want to pick up new tool manifests without a restart.
func (r *Registry) WatchDir(dir string, scan func(dir string) ([]Entry, error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("registry: create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("registry: watch %s: %w", dir, err)
	}

	w := &Watcher{watcher: fw, reg: r, scan: scan, log: r.log}
	go w.loop(dir)
	return w, nil
}

func (w *Watcher) loop(dir string) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			entries, err := w.scan(dir)
			if err != nil {
				w.log.Warn("registry: rescan after catalog change failed", "dir", dir, "error", err)
				continue
			}
			for _, e := range entries {
				if err := w.reg.Register(e); err != nil {
					w.log.Warn("registry: register rescanned entry failed", "tool", e.Name, "error", err)
				}
			}
			w.log.Info("registry: catalog rescanned", "dir", dir, "entries", len(entries))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("registry: watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
