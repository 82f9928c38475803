package scan

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"offnitro/internal/logging"
)

// Watcher runs a handler for every molecule file dropped into an inbox
// directory. It turns the original edit-the-script-per-molecule workflow
// into an unattended one: point quantum-chemistry jobs at the output
// directory and feed geometries into the inbox.
type Watcher struct {
	dir     string
	handler func(path string)
	fsw     *fsnotify.Watcher
}

// NewWatcher watches dir. The handler is called with the path of every
// newly created .xyz or .mol2 file, from the watch goroutine.
func NewWatcher(dir string, handler func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{dir: dir, handler: handler, fsw: fsw}, nil
}

// Run processes events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	logging.Watch("watching %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) {
				continue
			}
			if !isMoleculeFile(ev.Name) {
				continue
			}
			logging.Watch("new molecule: %s", ev.Name)
			w.handler(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.WatchError("watch error: %v", err)
		}
	}
}

func isMoleculeFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xyz", ".mol2":
		return true
	}
	return false
}
