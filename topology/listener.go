package topology

// Listener is notified about nodes joining and leaving the topology. Returned
// errors are logged and do not affect the other listeners.
//
// Listeners are identified by interface equality when removed from the
// registry, so implementations must be comparable (usually a pointer).
type Listener interface {
	OnNodeAdded(node Node) error
	OnNodeRemoved(node Node) error
}

// ListenerFuncs adapts plain functions to the Listener interface. Register it
// by pointer. Nil functions are ignored.
type ListenerFuncs struct {
	Added   func(Node) error
	Removed func(Node) error
}

func (l *ListenerFuncs) OnNodeAdded(node Node) error {
	if l.Added == nil {
		return nil
	}

	return l.Added(node)
}

func (l *ListenerFuncs) OnNodeRemoved(node Node) error {
	if l.Removed == nil {
		return nil
	}

	return l.Removed(node)
}
