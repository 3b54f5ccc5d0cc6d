// Package watch monitors a benchmark tree and signals when a rerun is due.
//
// It uses fsnotify for cross-platform file system event monitoring and
// coalesces bursts of events (editor saves touch files several times) into a
// single trigger after a quiet period.
package watch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gobench-cli/gobench/internal/registry"
)

// DefaultDebounce is the quiet period before a trigger fires.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches a benchmark directory tree for module changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	triggers chan string
	errors   chan error
	done     chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	running bool

	debounce time.Duration
}

// New creates a Watcher. It must be started with Start before it emits
// triggers.
func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fsw,
		triggers: make(chan string, 1),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
		debounce: DefaultDebounce,
	}, nil
}

// Start begins watching root and its subdirectories for benchmark module
// changes.
func (w *Watcher) Start(root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.running = true
	w.wg.Add(1)
	go w.loop()

	return nil
}

// Triggers delivers the path of the change that ended each quiet period.
func (w *Watcher) Triggers() <-chan string {
	return w.triggers
}

// Errors delivers watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop shuts the watcher down and waits for its goroutine.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false

	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// loop filters raw fsnotify events down to benchmark modules and debounces
// them into rerun triggers.
func (w *Watcher) loop() {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case w.triggers <- pending:
			default:
				// A trigger is already queued; the rerun it causes
				// will pick up this change too.
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// relevant reports whether the event concerns a benchmark module or the
// project configuration.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	base := filepath.Base(event.Name)
	if base == "gobench.toml" {
		return true
	}
	return strings.HasPrefix(base, registry.Prefix) &&
		strings.HasSuffix(base, ".go") &&
		!strings.HasSuffix(base, "_test.go")
}
