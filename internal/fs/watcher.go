package fs

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"mdage/internal/mdage"
)

// ForgetCallback is called after the watcher dropped an unlocked key file.
type ForgetCallback func(path string)

// KeyFileWatcher drops cached identities when their key file changes on
// disk, so a rotated or deleted key file has to be unlocked again.
type KeyFileWatcher struct {
	cache     *mdage.KeyFileCache
	vaultRoot string
	logger    mdage.Logger
	onForget  ForgetCallback

	// watched maps absolute file paths to the configured key file path.
	watched map[string]string
}

// NewKeyFileWatcher creates a watcher for the given configured key file
// paths. vaultRoot anchors vault-relative paths; it may be empty when the
// vault is not on disk, in which case only external key files are watched.
func NewKeyFileWatcher(cache *mdage.KeyFileCache, paths []string, vaultRoot string, logger mdage.Logger, onForget ForgetCallback) *KeyFileWatcher {
	w := &KeyFileWatcher{
		cache:     cache,
		vaultRoot: vaultRoot,
		logger:    logger,
		onForget:  onForget,
		watched:   make(map[string]string),
	}
	for _, p := range paths {
		if abs, ok := w.absPath(p); ok {
			w.watched[abs] = p
		}
	}
	return w
}

func (w *KeyFileWatcher) absPath(configured string) (string, bool) {
	loc := w.cache.Resolve(configured)
	if loc.External {
		return loc.Path, true
	}
	if w.vaultRoot == "" {
		return "", false
	}
	return filepath.Join(w.vaultRoot, filepath.FromSlash(loc.Path)), true
}

// Watched returns the number of key files under watch.
func (w *KeyFileWatcher) Watched() int { return len(w.watched) }

// Run watches the parent directories of the key files until ctx is
// cancelled. Directories are watched instead of files so that editors
// replacing a file by rename are still seen.
func (w *KeyFileWatcher) Run(ctx context.Context) error {
	if len(w.watched) == 0 {
		<-ctx.Done()
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	dirs := make(map[string]bool)
	for abs := range w.watched {
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			w.logger.Warn("watcher: cannot watch key file directory", "dir", dir, "error", err)
			continue
		}
		dirs[dir] = true
	}

	w.logger.Info("watcher: started", "key_files", len(w.watched), "dirs", len(dirs))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			configured, ok := w.watched[filepath.Clean(ev.Name)]
			if !ok {
				continue
			}
			if w.cache.Forget(configured) {
				w.logger.Info("watcher: key file changed, identity dropped", "path", configured, "op", ev.Op.String())
				if w.onForget != nil {
					w.onForget(configured)
				}
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", "error", watchErr)
		}
	}
}
