package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/devicelab-dev/imtest/pkg/logger"
)

// watchDebounce groups the bursts of events editors emit on save.
const watchDebounce = 200 * time.Millisecond

// scriptWatcher signals when one of the watched scripts changes.
type scriptWatcher struct {
	fsWatcher *fsnotify.Watcher
	scripts   map[string]bool
	Events    chan string // Carries the changed script path
	done      chan struct{}
}

// newScriptWatcher watches the directories holding scripts. Editors often
// replace files on save, so directories are watched rather than files.
func newScriptWatcher(scripts []string) (*scriptWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &scriptWatcher{
		fsWatcher: fsWatcher,
		scripts:   make(map[string]bool),
		Events:    make(chan string, 10),
		done:      make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, s := range scripts {
		abs, err := filepath.Abs(s)
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
		w.scripts[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go w.loop()
	return w, nil
}

// Close stops the watcher and releases resources.
func (w *scriptWatcher) Close() {
	close(w.done)
	w.fsWatcher.Close()
}

func (w *scriptWatcher) loop() {
	var timer *time.Timer
	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !w.scripts[name] {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case w.Events <- name:
				default:
				}
			})
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}

// watchAndRun runs once, then again after every script change, until ctx
// is cancelled. Each run uses a fresh session so scripts are reloaded.
func watchAndRun(ctx context.Context, cfg *RunConfig) error {
	w, err := newScriptWatcher(cfg.Scripts)
	if err != nil {
		return err
	}
	defer w.Close()

	for {
		if _, err := executeRun(ctx, cfg); err != nil {
			fmt.Fprintf(out, "  %s %v\n", paint(styleRed, "Error:"), err)
		}
		fmt.Fprintf(out, "  %s\n", paint(styleGray, "Watching for changes (Ctrl+C to stop)..."))

		select {
		case <-ctx.Done():
			return nil
		case name := <-w.Events:
			fmt.Fprintf(out, "\n  %s %s\n", paint(styleCyan, "Changed:"), filepath.Base(name))
			if cfg.OutputDir != "" {
				cfg.OutputDir, err = resolveOutputDir(cfg.OutputBase, cfg.Flatten)
				if err != nil {
					return err
				}
			}
		}
	}
}
