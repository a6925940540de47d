package am

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/logger"
)

// ChangeCallback is called with the path of a watched file after it changed.
type ChangeCallback func(path string) error

// FileWatcher watches a single file and fires callbacks after writes settle.
type FileWatcher struct {
	path           string
	watcher        *fsnotify.Watcher
	callbacks      []ChangeCallback
	mu             sync.Mutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	logger         *zap.SugaredLogger
	done           chan struct{}
}

// NewFileWatcher watches path. The parent directory is watched so editors
// that replace the file by rename are still seen.
func NewFileWatcher(path string, debounce time.Duration, log *zap.SugaredLogger) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", path)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", path)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &FileWatcher{
		path:           abs,
		watcher:        w,
		debouncePeriod: debounce,
		logger:         logger.OrNop(log),
		done:           make(chan struct{}),
	}, nil
}

// OnChange registers a callback.
func (fw *FileWatcher) OnChange(cb ChangeCallback) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.callbacks = append(fw.callbacks, cb)
}

// Start begins watching in a background goroutine.
func (fw *FileWatcher) Start() {
	go fw.loop()
}

// Done is closed when the watcher stops.
func (fw *FileWatcher) Done() <-chan struct{} {
	return fw.done
}

func (fw *FileWatcher) loop() {
	defer close(fw.done)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fw.logger.Debugw("watched file changed", logger.FieldPath, event.Name, "op", event.Op.String())
			fw.schedule()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warnw("file watcher error", logger.FieldError, err)
		}
	}
}

func (fw *FileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.debounceTimer = time.AfterFunc(fw.debouncePeriod, fw.fire)
}

func (fw *FileWatcher) fire() {
	fw.mu.Lock()
	callbacks := make([]ChangeCallback, len(fw.callbacks))
	copy(callbacks, fw.callbacks)
	fw.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(fw.path); err != nil {
			// keep going so one failing consumer does not starve the rest
			fw.logger.Warnw("change callback failed", logger.FieldPath, fw.path, logger.FieldError, err)
		}
	}
}

// Stop stops watching.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.mu.Unlock()
	return fw.watcher.Close()
}
