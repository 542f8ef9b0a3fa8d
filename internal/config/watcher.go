package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher watches the envelope and .env files for changes and
// republishes a freshly-loaded Snapshot on Changes whenever they are
// written. The collector's subscribers swap their in-memory snapshot
// atomically on receipt; they never read partial state.
type Watcher struct {
	fsw     *fsnotify.Watcher
	dataDir string
	changes chan *Snapshot
	done    chan struct{}
}

// NewWatcher creates a Watcher rooted at dataDir. Start must be called
// to begin watching.
func NewWatcher(dataDir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:     fsw,
		dataDir: dataDir,
		changes: make(chan *Snapshot, 1),
		done:    make(chan struct{}),
	}, nil
}

// Changes returns the channel on which fresh snapshots are published.
func (w *Watcher) Changes() <-chan *Snapshot { return w.changes }

// Start begins watching the data directory.
func (w *Watcher) Start() error {
	if err := w.fsw.Add(w.dataDir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop terminates the watcher goroutine and releases the underlying
// filesystem watch.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.fsw.Close()
}

func (w *Watcher) loop() {
	// Debounce bursts of writes (editors often write-then-rename).
	var pending *time.Timer
	reload := func() {
		snap, err := Load()
		if err != nil {
			log.Error().Err(err).Msg("config reload failed, keeping previous snapshot")
			return
		}
		select {
		case w.changes <- snap:
		default:
			// Drop the stale pending snapshot in favor of the new one.
			select {
			case <-w.changes:
			default:
			}
			w.changes <- snap
		}
	}

	for {
		select {
		case <-w.done:
			if pending != nil {
				pending.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			base := filepath.Base(ev.Name)
			if base != "panfm.enc" && base != ".env" {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(500*time.Millisecond, reload)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config watcher error")
		}
	}
}
