package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher reloads single commands when their manifests change and publishes
// the command set after each successful reload.
type Watcher struct {
	registry *Registry
	root     string
	fsw      *fsnotify.Watcher

	stopOnce sync.Once
	stopErr  error
	done     chan struct{}
}

// NewWatcher observes root and every category directory below it.
func NewWatcher(reg *Registry, root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		registry: reg,
		root:     root,
		fsw:      fsw,
		done:     make(chan struct{}),
	}

	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("read %s: %w", root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.watchCategory(filepath.Join(root, e.Name())); err != nil {
				fsw.Close()
				return nil, err
			}
		}
	}
	return w, nil
}

func (w *Watcher) watchCategory(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.Debug().Str("dir", dir).Msg("watching command category")
	return nil
}

// Run processes file events until ctx is done or Stop is called.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return w.Stop()
		case <-w.done:
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("command watcher error")
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && filepath.Dir(ev.Name) == filepath.Clean(w.root) {
			if err := w.watchCategory(ev.Name); err != nil {
				log.Error().Err(err).Msg("failed to watch new category")
			}
			return
		}
	}

	category, ok := CategoryDir(w.root, ev.Name)
	if !ok {
		return
	}

	switch {
	case ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create):
		d, err := w.registry.Load(category, ev.Name)
		if err != nil {
			log.Error().Err(err).Str("file", ev.Name).Msg("reload failed, keeping previous command")
			return
		}
		log.Info().Str("command", d.Name).Str("category", category).Msg("command reloaded")

	case ev.Has(fsnotify.Remove):
		// Editors that save by replacing the file emit Remove or Rename
		// before the new file appears; only a path that stays gone counts.
		if _, err := os.Stat(ev.Name); !errors.Is(err, os.ErrNotExist) {
			return
		}
		name, removed := w.registry.UnregisterSource(ev.Name)
		if !removed {
			return
		}
		log.Info().Str("command", name).Msg("command removed")

	default:
		return
	}

	if err := w.registry.Publish(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("failed to publish commands")
	}
}

// Stop releases all observers. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
		w.stopErr = w.fsw.Close()
	})
	return w.stopErr
}
