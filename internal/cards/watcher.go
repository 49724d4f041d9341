package cards

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a catalog when its backing file changes, so card cost
// updates land without a restart. A reload that fails to parse keeps the
// current table.
type Watcher struct {
	catalog *Catalog
	path    string
	watcher *fsnotify.Watcher
	logger  *log.Logger
	done    chan struct{}
}

// Watch starts watching path and reloading catalog on changes. The watch is
// registered on the parent directory because editors and sync tools commonly
// replace the file rather than write it in place.
func Watch(catalog *Catalog, path string, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch catalog directory: %w", err)
	}

	w := &Watcher{
		catalog: catalog,
		path:    path,
		watcher: fsw,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := w.catalog.ReloadFromFile(w.path); err != nil {
				w.logger.Warn("catalog reload failed, keeping previous table", "error", err)
				continue
			}
			w.logger.Info("card catalog reloaded", "path", w.path, "cards", w.catalog.Len())

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
