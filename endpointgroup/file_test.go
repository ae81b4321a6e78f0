package endpointgroup_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/endpointkit/endpointkit/endpointgroup"
	"github.com/endpointkit/endpointkit/filewatcher"
	"github.com/endpointkit/endpointkit/strategy"
)

func TestFileWatchedParsesPrefixedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "endpoints.conf")
	content := "# comment\n" +
		"backends.2=10.0.0.2:8080\n" +
		"backends.1=10.0.0.1:8080#3\n" +
		"other.key=ignored\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}

	reg := filewatcher.New()
	g, err := endpointgroup.NewFileWatched("file-group", strategy.NewWeightedRoundRobin(), reg, path, "backends", 0)
	if err != nil {
		t.Fatalf("NewFileWatched: %s", err)
	}
	defer g.Close()

	snap := g.Endpoints()
	if len(snap) != 2 {
		t.Fatalf("expected 2 endpoints, got %d: %v", len(snap), snap)
	}
	if snap[0].Authority() != "10.0.0.1:8080" || snap[0].Weight() != 3 {
		t.Fatalf("expected backends.1 first (lexical order), got %v", snap[0])
	}
	if snap[1].Authority() != "10.0.0.2:8080" {
		t.Fatalf("expected backends.2 second, got %v", snap[1])
	}
}

func TestFileWatchedReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "endpoints.conf")
	if err := os.WriteFile(path, []byte("backends.1=10.0.0.1:8080\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}

	reg := filewatcher.New()
	g, err := endpointgroup.NewFileWatched("file-group-2", strategy.NewWeightedRoundRobin(), reg, path, "backends", 0)
	if err != nil {
		t.Fatalf("NewFileWatched: %s", err)
	}
	defer g.Close()

	changed := make(chan endpointgroup.Snapshot, 1)
	g.AddListener(func(s endpointgroup.Snapshot) { changed <- s }, false)

	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(path, []byte("backends.1=10.0.0.1:8080\nbackends.2=10.0.0.2:9090\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}

	select {
	case s := <-changed:
		if len(s) != 2 {
			t.Fatalf("expected 2 endpoints after reload, got %d", len(s))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for file-watched group to reload")
	}
}
