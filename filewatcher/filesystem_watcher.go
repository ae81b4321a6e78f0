package filewatcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	logging "github.com/sirupsen/logrus"
)

// subscription is one (group, path, callback) registration.
type subscription struct {
	key      WatchKey
	group    string
	path     string
	callback func()
}

// filesystemWatcher owns a single fsnotify.Watcher and its background
// goroutine, shared by every subscription on that filesystem.
// Callback execution is serialized on that goroutine.
type filesystemWatcher struct {
	fsKey string
	log   *logging.Entry

	mu            sync.Mutex
	watcher       *fsnotify.Watcher
	subsByKey     map[WatchKey]*subscription
	watchedDirs   map[string]int // parent dir -> subscriber count
	pendingTimers map[string]*time.Timer
	fireCh        chan string
	stopCh        chan struct{}
	stopped       bool
}

func newFilesystemWatcher(fsKey string, log *logging.Entry) *filesystemWatcher {
	return &filesystemWatcher{
		fsKey:         fsKey,
		log:           log.WithField("filesystem", fsKey),
		subsByKey:     make(map[WatchKey]*subscription),
		watchedDirs:   make(map[string]int),
		pendingTimers: make(map[string]*time.Timer),
		fireCh:        make(chan string, 16),
	}
}

func (fw *filesystemWatcher) existingKey(group, path string) (WatchKey, bool) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for _, sub := range fw.subsByKey {
		if sub.group == group && sub.path == path {
			return sub.key, true
		}
	}
	return WatchKey{}, false
}

// add registers a new subscription, starting the background watcher
// lazily on the first call.
func (fw *filesystemWatcher) add(key WatchKey, group, path string, callback func()) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		fw.watcher = w
		fw.stopCh = make(chan struct{})
		go fw.run()
	}

	dir := filepath.Dir(path)
	if fw.watchedDirs[dir] == 0 {
		if err := fw.watcher.Add(dir); err != nil {
			return err
		}
	}
	fw.watchedDirs[dir]++

	fw.subsByKey[key] = &subscription{key: key, group: group, path: path, callback: callback}
	return nil
}

// remove unregisters key, returning whether it was present on this
// filesystem.
func (fw *filesystemWatcher) remove(key WatchKey) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	sub, ok := fw.subsByKey[key]
	if !ok {
		return false
	}
	delete(fw.subsByKey, key)

	dir := filepath.Dir(sub.path)
	fw.watchedDirs[dir]--
	if fw.watchedDirs[dir] <= 0 {
		delete(fw.watchedDirs, dir)
		if fw.watcher != nil {
			_ = fw.watcher.Remove(dir)
		}
	}
	if t, ok := fw.pendingTimers[sub.path]; ok {
		t.Stop()
		delete(fw.pendingTimers, sub.path)
	}
	return true
}

func (fw *filesystemWatcher) empty() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return len(fw.subsByKey) == 0
}

// stop shuts down the background goroutine. The last Unregister call
// for this filesystem triggers it, matching "stop automatically when
// the last key is unregistered".
func (fw *filesystemWatcher) stop() {
	fw.mu.Lock()
	if fw.stopped {
		fw.mu.Unlock()
		return
	}
	fw.stopped = true
	close(fw.stopCh)
	w := fw.watcher
	fw.mu.Unlock()

	if w != nil {
		_ = w.Close()
	}
}

// run is the background watcher goroutine: one per filesystem,
// dispatching coalesced callbacks serially.
func (fw *filesystemWatcher) run() {
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Warnf("file watcher error on %s: %s", fw.fsKey, err)
		case path := <-fw.fireCh:
			// All callback invocations for this filesystem run here,
			// on this single goroutine, so they are serialized even
			// though the coalescing timers that trigger them run on
			// their own goroutines.
			fw.fire(path)
		case <-fw.stopCh:
			return
		}
	}
}

// handleEvent matches the event's path against registered
// subscriptions and schedules a coalesced callback invocation per
// path: a burst of rapid events within CoalesceWindow collapses to one
// callback call (at-least-once, de-duplicated).
func (fw *filesystemWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	fw.mu.Lock()
	var matched []*subscription
	for _, sub := range fw.subsByKey {
		if sub.path == event.Name {
			matched = append(matched, sub)
		}
	}
	if len(matched) == 0 {
		fw.mu.Unlock()
		return
	}

	if t, pending := fw.pendingTimers[event.Name]; pending {
		t.Stop()
	}
	path := event.Name
	fw.pendingTimers[path] = time.AfterFunc(CoalesceWindow, func() {
		select {
		case fw.fireCh <- path:
		case <-fw.stopCh:
		}
	})
	fw.mu.Unlock()
}

// fire invokes every current subscription's callback for path,
// serially on the run goroutine (fed through fireCh), logging and
// swallowing any panic so one subscriber can never break another.
func (fw *filesystemWatcher) fire(path string) {
	fw.mu.Lock()
	delete(fw.pendingTimers, path)
	var callbacks []func()
	for _, sub := range fw.subsByKey {
		if sub.path == path {
			callbacks = append(callbacks, sub.callback)
		}
	}
	fw.mu.Unlock()

	for _, cb := range callbacks {
		fw.safeInvoke(cb)
	}
}

func (fw *filesystemWatcher) safeInvoke(cb func()) {
	defer func() {
		if r := recover(); r != nil {
			fw.log.Errorf("file watcher callback panicked: %v", r)
		}
	}()
	cb()
}
