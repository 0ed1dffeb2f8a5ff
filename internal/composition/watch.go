package composition

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads a whenever the composition file, its contract or one of its
// scripts is written or created, once changes have settled for the
// assembly's debounce period. Reload errors are logged and the previous
// bindings stay in place. Watch blocks until ctx is done.
func Watch(ctx context.Context, a *Assembly) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dirs := make(map[string]bool)
	watched := make(map[string]bool)
	track := func() error {
		watched = make(map[string]bool)
		for _, p := range a.File().Paths() {
			watched[p] = true
			dir := filepath.Dir(p)
			if dirs[dir] {
				continue
			}
			if err := w.Add(dir); err != nil {
				return err
			}
			dirs[dir] = true
		}
		return nil
	}
	if err := track(); err != nil {
		return err
	}

	a.log.Debug("Watching composition.", "dirs", len(dirs))

	debounce := a.opts.debounce
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			if !watched[filepath.Clean(ev.Name)] {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			err := a.Reload(ctx)
			if err != nil {
				a.log.Error("Reload failed; keeping previous bindings.", "error", err)
			} else if err := track(); err != nil {
				a.log.Warn("Could not watch new script directory.", "error", err)
			}
			if a.opts.onReload != nil {
				a.opts.onReload(err)
			}
			if errors.Is(err, ErrClosed) {
				return nil
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.log.Warn("Watcher error.", "error", err)
		}
	}
}
