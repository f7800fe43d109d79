package topology

import (
	"fmt"
	"reflect"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/exp/slices"

	"github.com/maxpoletaev/gridclient/metrics"
)

const (
	eventAdded   = "added"
	eventRemoved = "removed"
)

// Registry keeps the topology listeners and dispatches node events to them.
// The lock is only held to copy or modify the list, never while a listener is
// being called, so listeners may add or remove listeners from a callback.
type Registry struct {
	mut       sync.Mutex
	listeners []Listener
	logger    kitlog.Logger
}

func NewRegistry(logger kitlog.Logger) *Registry {
	return &Registry{
		logger: logger,
	}
}

// Add appends the listener to the registry. Nil listeners are ignored.
func (r *Registry) Add(l Listener) {
	if l == nil {
		return
	}

	r.mut.Lock()
	defer r.mut.Unlock()

	r.listeners = append(r.listeners, l)
}

// Remove removes the first occurrence of the listener and returns true if it
// was registered. Removing an unknown listener is a no-op. Listeners of a
// non-comparable type can never be matched, so they cannot be removed.
func (r *Registry) Remove(l Listener) bool {
	if l == nil || !reflect.TypeOf(l).Comparable() {
		return false
	}

	r.mut.Lock()
	defer r.mut.Unlock()

	idx := slices.IndexFunc(r.listeners, func(other Listener) bool {
		// Comparing interfaces panics only when both hold the same
		// non-comparable type, which is ruled out above.
		return other == l
	})

	if idx < 0 {
		return false
	}

	r.listeners = slices.Delete(r.listeners, idx, idx+1)

	return true
}

// Listeners returns a copy of the registered listeners in insertion order.
func (r *Registry) Listeners() []Listener {
	r.mut.Lock()
	defer r.mut.Unlock()

	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)

	return listeners
}

// Notify delivers the added events followed by the removed events to every
// registered listener.
func (r *Registry) Notify(added, removed []Node) {
	if len(added) == 0 && len(removed) == 0 {
		return
	}

	listeners := r.Listeners()

	for _, node := range added {
		level.Debug(r.logger).Log("msg", "firing node added", "node_id", node.ID)

		for _, l := range listeners {
			r.call(l, eventAdded, node)
		}
	}

	for _, node := range removed {
		level.Debug(r.logger).Log("msg", "firing node removed", "node_id", node.ID)

		for _, l := range listeners {
			r.call(l, eventRemoved, node)
		}
	}
}

func (r *Registry) call(l Listener, event string, node Node) {
	var err error

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("listener panicked: %v", p)
		}

		if err != nil {
			metrics.ListenerFailures.WithLabelValues(event).Inc()

			level.Error(r.logger).Log(
				"msg", "topology listener failed",
				"event", event,
				"node_id", node.ID,
				"err", err,
			)
		}
	}()

	switch event {
	case eventAdded:
		err = l.OnNodeAdded(node)
	case eventRemoved:
		err = l.OnNodeRemoved(node)
	}
}
