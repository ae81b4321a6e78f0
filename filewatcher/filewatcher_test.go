package filewatcher_test

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/endpointkit/endpointkit/filewatcher"
)

func TestRegisterInvokesCallbackOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "endpoints.conf")
	if err := os.WriteFile(path, []byte("initial"), 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}

	reg := filewatcher.New()
	var calls int32
	key, err := reg.Register("test-group", path, func() { atomic.AddInt32(&calls, 1) })
	if err != nil {
		t.Fatalf("Register: %s", err)
	}
	defer reg.Unregister(key)

	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(path, []byte("updated"), 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&calls) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected callback to fire after write, calls=%d", calls)
}

func TestReRegisterSameGroupIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "endpoints.conf")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}

	reg := filewatcher.New()
	k1, err := reg.Register("g", path, func() {})
	if err != nil {
		t.Fatalf("Register: %s", err)
	}
	k2, err := reg.Register("g", path, func() {})
	if err != nil {
		t.Fatalf("Register: %s", err)
	}
	if k1 != k2 {
		t.Fatalf("expected idempotent registration to return the same key")
	}
}

func TestUnregisterStopsFurtherCallbacks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "endpoints.conf")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}

	reg := filewatcher.New()
	var calls int32
	key, err := reg.Register("g", path, func() { atomic.AddInt32(&calls, 1) })
	if err != nil {
		t.Fatalf("Register: %s", err)
	}
	reg.Unregister(key)

	if err := os.WriteFile(path, []byte("y"), 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}
	time.Sleep(200 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no callbacks after unregister, got %d", calls)
	}
}
