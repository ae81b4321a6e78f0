// Package filewatcher implements the process-wide file-watch registry
// (C3) shared by every file-backed endpoint group. It groups
// registrations by filesystem, running one background fsnotify loop
// per filesystem, and is grounded on the directory-watch idiom in
// pkg/credswatcher: watch the parent directory and filter events by
// basename, because editors and config-management tools commonly
// replace a file rather than writing it in place.
package filewatcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/endpointkit/endpointkit/internal/xlog"
	"github.com/fsnotify/fsnotify"
	logging "github.com/sirupsen/logrus"
)

// CoalesceWindow bounds how long a burst of rapid modifications to the
// same path is collapsed into a single callback invocation.
const CoalesceWindow = 50 * time.Millisecond

// WatchKey identifies one registration, returned by Register and
// required by Unregister.
type WatchKey struct {
	id uint64
}

// Registry is a process-wide, reference-counted set of file watches.
// Tests should construct their own Registry via New rather than share
// a package-level singleton, so watcher lifecycles stay isolated.
type Registry struct {
	mu          sync.Mutex
	filesystems map[string]*filesystemWatcher
	log         *logging.Entry
	nextID      uint64
}

// New returns an empty Registry. No background goroutine is started
// until the first Register call.
func New() *Registry {
	return &Registry{
		filesystems: make(map[string]*filesystemWatcher),
		log:         xlog.Component("filewatcher"),
	}
}

// Register starts watching path (if not already watched under the
// same group) and invokes callback, serialized with every other
// callback on the same filesystem, on every coalesced change.
// Re-registering the same (group, path) pair is idempotent and
// returns the existing key.
func (r *Registry) Register(group, path string, callback func()) (WatchKey, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return WatchKey{}, fmt.Errorf("filewatcher: resolving %q: %w", path, err)
	}

	fsKey := filesystemKey(abs)

	r.mu.Lock()
	fw, ok := r.filesystems[fsKey]
	if !ok {
		fw = newFilesystemWatcher(fsKey, r.log)
		r.filesystems[fsKey] = fw
	}
	r.mu.Unlock()

	if key, ok := fw.existingKey(group, abs); ok {
		return key, nil
	}

	r.mu.Lock()
	r.nextID++
	key := WatchKey{id: r.nextID}
	r.mu.Unlock()

	if err := fw.add(key, group, abs, callback); err != nil {
		return WatchKey{}, err
	}
	return key, nil
}

// Unregister removes a previously registered watch. The background
// watcher for its filesystem stops automatically once its last key is
// removed.
func (r *Registry) Unregister(key WatchKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for fsKey, fw := range r.filesystems {
		if fw.remove(key) {
			if fw.empty() {
				fw.stop()
				delete(r.filesystems, fsKey)
			}
			return
		}
	}
}

// filesystemKey groups paths by filesystem; on POSIX systems without a
// volume concept this collapses to a single group, matching the common
// single-disk deployment this module targets (see DESIGN.md).
func filesystemKey(absPath string) string {
	if vol := filepath.VolumeName(absPath); vol != "" {
		return vol
	}
	return "/"
}
