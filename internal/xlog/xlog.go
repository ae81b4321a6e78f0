// Package xlog provides the per-component logger convention shared by
// every stateful piece of endpointkit.
package xlog

import logging "github.com/sirupsen/logrus"

// Component returns a *logging.Entry tagged with the given component
// name, following the same "component" field convention used
// throughout the watcher packages this library is descended from.
func Component(name string) *logging.Entry {
	return logging.WithFields(logging.Fields{
		"component": name,
	})
}
