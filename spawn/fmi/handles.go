package fmi

import "sync"

// Handle identifies an instance across the C ABI, where fmi2Component is an
// opaque pointer-sized value. Zero is never a valid handle.
type Handle uintptr

// Table maps handles to instances. It is safe for concurrent use.
type Table struct {
	mu        sync.Mutex
	next      Handle
	instances map[Handle]*Instance
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{instances: make(map[Handle]*Instance)}
}

// Add stores i and returns its handle.
func (t *Table) Add(i *Instance) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.instances[t.next] = i
	return t.next
}

// Get returns the instance of h.
func (t *Table) Get(h Handle) (*Instance, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.instances[h]
	return i, ok
}

// Remove deletes h and returns the instance it held.
func (t *Table) Remove(h Handle) (*Instance, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.instances[h]
	delete(t.instances, h)
	return i, ok
}

// Len returns the number of live instances.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.instances)
}
