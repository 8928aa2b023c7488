package contextmgr

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FsnotifyWatcher wraps *fsnotify.Watcher to satisfy fsWatcher and to
// coalesce the burst of events a single save typically produces into one
// refresh, the same debounce strategy the teacher's skills manager used
// for its own directory watch.
type FsnotifyWatcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewFsnotifyWatcher starts watching and, on every coalesced burst of
// create/write/remove/rename events, invokes onChange with the affected
// path.
func NewFsnotifyWatcher(logger *slog.Logger, debounce time.Duration, onChange func(path string)) (*FsnotifyWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &FsnotifyWatcher{watcher: w, logger: logger}
	go fw.loop(debounce, onChange)
	return fw, nil
}

func (fw *FsnotifyWatcher) loop(debounce time.Duration, onChange func(path string)) {
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			path := event.Name
			fw.mu.Lock()
			if fw.timer != nil {
				fw.timer.Stop()
			}
			fw.timer = time.AfterFunc(debounce, func() { onChange(path) })
			fw.mu.Unlock()
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("context watch error", "error", err)
		}
	}
}

func (fw *FsnotifyWatcher) Add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}
	return fw.watcher.Add(path)
}

func (fw *FsnotifyWatcher) Remove(path string) error {
	return fw.watcher.Remove(path)
}

func (fw *FsnotifyWatcher) Close() error {
	return fw.watcher.Close()
}
