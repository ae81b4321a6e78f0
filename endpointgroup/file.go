package endpointgroup

import (
	"os"
	"sort"
	"strings"

	"github.com/endpointkit/endpointkit/endpoint"
	"github.com/endpointkit/endpointkit/filewatcher"
	"github.com/endpointkit/endpointkit/internal/xlog"
	logging "github.com/sirupsen/logrus"
)

// FileWatched is a Dynamic group whose snapshot is derived from a
// key=value file: keys matching "<prefix>.N" are collected in
// lexical order of N, each value parsed as an endpoint text form.
// It unregisters itself from the shared Registry on Close to
// stop the background watcher once it is the last consumer.
type FileWatched struct {
	*Dynamic

	registry    *filewatcher.Registry
	key         filewatcher.WatchKey
	path        string
	prefix      string
	defaultPort int
	log         *logging.Entry
}

// NewFileWatched reads path once synchronously, surfacing a parse
// error immediately rather than deferring it to the background
// watcher, then registers a watch so subsequent file changes
// republish through the same Dynamic publish protocol as any other
// group.
func NewFileWatched(name string, strat strategyRef, registry *filewatcher.Registry, path, prefix string, defaultPort int, opts ...DynamicOption) (*FileWatched, error) {
	fw := &FileWatched{
		Dynamic:     NewDynamic(name, strat, opts...),
		registry:    registry,
		path:        path,
		prefix:      prefix,
		defaultPort: defaultPort,
		log:         xlog.Component("endpointgroup").WithField("group", name),
	}

	if err := fw.reload(); err != nil {
		return nil, err
	}

	key, err := registry.Register(name, path, func() {
		if err := fw.reload(); err != nil {
			fw.log.Warnf("failed to reload endpoint file %s: %s", path, err)
		}
	})
	if err != nil {
		return nil, err
	}
	fw.key = key
	return fw, nil
}

// Close stops watching the backing file.
func (fw *FileWatched) Close() {
	fw.registry.Unregister(fw.key)
}

func (fw *FileWatched) reload() error {
	data, err := os.ReadFile(fw.path)
	if err != nil {
		return err
	}
	endpoints, err := parseFileEndpoints(data, fw.prefix, fw.defaultPort)
	if err != nil {
		return err
	}
	fw.SetEndpoints(endpoints...)
	return nil
}

// parseFileEndpoints implements the file format: "#" starts a
// comment; keys matching "<prefix>.N" are collected in lexical order
// of N.
func parseFileEndpoints(data []byte, prefix string, defaultPort int) ([]endpoint.Endpoint, error) {
	type keyed struct {
		n, v string
	}
	var matches []keyed

	for _, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		n, ok := strings.CutPrefix(key, prefix+".")
		if !ok {
			continue
		}
		matches = append(matches, keyed{n: n, v: val})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].n < matches[j].n })

	endpoints := make([]endpoint.Endpoint, 0, len(matches))
	for _, m := range matches {
		e, err := endpoint.ParseWeighted(m.v, defaultPort)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, nil
}
