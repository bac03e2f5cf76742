package identity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch follows the identity file so an identity written by another process
// (a second launcher, the savesync CLI) takes effect here. Changes are routed
// through the same listeners as SetIdentity.
//
// The watcher is running when Watch returns; it stops when ctx is done, and
// the returned channel is closed once it has.
func (r *Resolver) Watch(ctx context.Context) (<-chan struct{}, error) {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create identity dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: atomic rename replaces the file's inode.
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != r.path {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				r.reload()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				r.logger.Warn("identity watcher error", zap.Error(err))
			}
		}
	}()
	return done, nil
}
