package observer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/memo/internal/core/domain"
)

const (
	// eventBuffer is the fsnotify channel size.
	eventBuffer = 1024
	// barrierPrefix names the marker file written to flush the watch.
	barrierPrefix = ".memo-barrier-"
)

// watch reports writes, creates, removes and renames below a directory. fsnotify cannot
// see reads; those come from the access report.
type watch struct {
	fsWatcher *fsnotify.Watcher
	obs       *observation
	dir       string
	barrier   string
	timeout   time.Duration

	barrierOnce sync.Once
	barrierSeen chan struct{}
	done        chan struct{}

	// dirs is owned by the event loop.
	dirs map[string]struct{}
}

func startWatch(ctx context.Context, obs *observation, timeout time.Duration) (*watch, error) {
	fsWatcher, err := fsnotify.NewBufferedWatcher(eventBuffer)
	if err != nil {
		return nil, err
	}

	w := &watch{
		fsWatcher:   fsWatcher,
		obs:         obs,
		dir:         obs.workDir,
		barrier:     filepath.Join(obs.workDir, barrierPrefix+sanitize(obs.contextID)),
		timeout:     timeout,
		barrierSeen: make(chan struct{}),
		done:        make(chan struct{}),
		dirs:        make(map[string]struct{}),
	}

	for dir := range walkDirs(w.dir) {
		if err := fsWatcher.Add(dir); err != nil {
			_ = fsWatcher.Close()
			return nil, err
		}
		w.dirs[dir] = struct{}{}
	}

	go w.loop(ctx)
	return w, nil
}

// stop writes the barrier file, waits until its event arrives so every earlier event
// has been reported, then closes the watch.
func (w *watch) stop() error {
	if err := os.WriteFile(w.barrier, nil, domain.FilePerm); err == nil {
		timer := time.NewTimer(w.timeout)
		select {
		case <-w.barrierSeen:
		case <-timer.C:
			w.obs.logger.Debug("file watch barrier timed out for " + w.obs.contextID)
		case <-w.done:
		}
		timer.Stop()
		_ = os.Remove(w.barrier)
	}

	err := w.fsWatcher.Close()
	<-w.done
	return err
}

func (w *watch) loop(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.obs.logger.Debug("file watch error: " + err.Error())
		}
	}
}

func (w *watch) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if strings.HasPrefix(filepath.Base(path), barrierPrefix) {
		if path == w.barrier && event.Has(fsnotify.Create) {
			w.barrierOnce.Do(func() { close(w.barrierSeen) })
		}
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Lstat(path)
		if err == nil && info.IsDir() {
			w.created(path)
			return
		}
		w.emit(domain.OpCreateFile, path, false)
	case event.Has(fsnotify.Write):
		w.emit(domain.OpWriteFile, path, false)
	case event.Has(fsnotify.Remove):
		if _, isDir := w.dirs[path]; isDir {
			delete(w.dirs, path)
			w.emit(domain.OpRemoveDirectory, path, true)
			return
		}
		w.emit(domain.OpDeleteFile, path, false)
	case event.Has(fsnotify.Rename):
		_, isDir := w.dirs[path]
		delete(w.dirs, path)
		w.emit(domain.OpMoveSource, path, isDir)
	}
}

// created watches a new directory tree and reports the entries that appeared before the
// watch was in place.
func (w *watch) created(root string) {
	if skipDir(filepath.Base(root)) {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // entries may vanish while the node runs
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return fs.SkipDir
			}
			if _, known := w.dirs[path]; !known {
				_ = w.fsWatcher.Add(path)
				w.dirs[path] = struct{}{}
			}
			w.emit(domain.OpCreateDirectory, path, true)
			return nil
		}
		w.emit(domain.OpCreateFile, path, false)
		return nil
	})
}

func (w *watch) emit(op domain.Operation, path string, isDir bool) {
	w.obs.emit(domain.FileAccessEvent{
		RequestedAccess: domain.AccessWrite,
		Operation:       op,
		Path:            path,
		DesiredAccess:   desiredFor(op),
		IsDirectory:     isDir,
	})
}

// walkDirs yields root and every directory below it that is not skipped.
func walkDirs(root string) func(yield func(string) bool) {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // skip unreadable directories
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && skipDir(d.Name()) {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func sanitize(id string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(id)
}
