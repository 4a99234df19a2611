// Package watch reloads a cutscene's assets whenever its CMD/POL/PRF
// files change on disk, for an edit-reload development loop.
package watch

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"flashback"
	"flashback/internal/assets"
)

// ReloadFunc is invoked after a watched asset changes, with enough
// context to re-run Player.Load.
type ReloadFunc func(ctx context.Context, fetcher flashback.AssetFetcher, cmdName, polName, prfName string) error

// Watcher reloads a single cutscene's assets when any of its files
// change under dir.
type Watcher struct {
	dir                       string
	cmdName, polName, prfName string
	onReload                  ReloadFunc
	log                       *logrus.Entry
	fsw                       *fsnotify.Watcher
}

// New builds a Watcher for one cutscene's three asset files inside dir.
// prfName may be empty when the cutscene has no audio profile.
func New(dir, cmdName, polName, prfName string, onReload ReloadFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		cmdName:  cmdName,
		polName:  polName,
		prfName:  prfName,
		onReload: onReload,
		log:      logrus.WithField("component", "watch"),
		fsw:      fsw,
	}, nil
}

// Run blocks, reloading on every relevant write event until ctx is
// cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	fetcher := &assets.DirFetcher{Dir: w.dir}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !w.relevant(ev.Name) {
				continue
			}
			w.log.WithField("file", ev.Name).Info("asset changed, reloading")
			if err := w.onReload(ctx, fetcher, w.cmdName, w.polName, w.prfName); err != nil {
				w.log.Warnf("reload failed: %v", err)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnf("watch error: %v", err)
		}
	}
}

func (w *Watcher) relevant(path string) bool {
	base := filepath.Base(path)
	return base == w.cmdName || base == w.polName || base == w.prfName
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
