package broker

import "sync"

// Connections maps an identifier to every live connection registered
// under it. One person can listen from several devices at once.
type Connections struct {
	mu      sync.RWMutex
	entries map[string][]*Conn
}

func NewConnections() *Connections {
	return &Connections{
		entries: map[string][]*Conn{},
	}
}

func (cs *Connections) Register(identifier string, conn *Conn) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.entries[identifier] = append(cs.entries[identifier], conn)
}

// Unregister removes one connection. Removing the last connection for an
// identifier removes the identifier entry itself. Unknown connections
// are a no-op, so teardown paths can all call it safely.
func (cs *Connections) Unregister(identifier string, conn *Conn) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	conns, ok := cs.entries[identifier]
	if !ok {
		return
	}

	remaining := conns[:0]
	for _, c := range conns {
		if c != conn {
			remaining = append(remaining, c)
		}
	}

	if len(remaining) == 0 {
		delete(cs.entries, identifier)
		return
	}

	cs.entries[identifier] = remaining
}

// For returns a snapshot of the connections registered under the
// identifier. Callers may iterate it while registrations change.
func (cs *Connections) For(identifier string) []*Conn {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	conns := cs.entries[identifier]
	if len(conns) == 0 {
		return nil
	}

	snapshot := make([]*Conn, len(conns))
	copy(snapshot, conns)

	return snapshot
}

func (cs *Connections) Count(identifier string) int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return len(cs.entries[identifier])
}

func (cs *Connections) Identifiers() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return len(cs.entries)
}

func (cs *Connections) Total() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	total := 0
	for _, conns := range cs.entries {
		total += len(conns)
	}

	return total
}
