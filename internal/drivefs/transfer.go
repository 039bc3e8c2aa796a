package drivefs

import (
	"sync"

	"github.com/driveftp/driveftp/internal/staging"
)

// Transfer is one in-flight background upload. It is created when a write
// decides to defer the content push, registered under the target's remote
// ID, and removed exactly once when the push completes or fails.
type Transfer struct {
	path     string
	fileID   string
	res      *staging.Resource
	size     int64
	done     func(fileID string)
	finished chan struct{}
}

// Path returns the target's full path as it will appear once complete.
func (t *Transfer) Path() string { return t.path }

// FileID returns the remote ID of the target object.
func (t *Transfer) FileID() string { return t.fileID }

// Size returns the tracked size of the staged content.
func (t *Transfer) Size() int64 { return t.size }

// Done returns a channel closed once the transfer has reached a terminal
// state, success or failure.
func (t *Transfer) Done() <-chan struct{} { return t.finished }

// transferRegistry maps remote IDs to in-flight transfers. Listings copy
// a size snapshot under its lock so they observe a consistent view of
// which entries are uploading. Critical sections hold map operations
// only, never remote calls.
type transferRegistry struct {
	mu     sync.Mutex
	m      map[string]*Transfer
	closed bool
}

func newTransferRegistry() *transferRegistry {
	return &transferRegistry{m: make(map[string]*Transfer)}
}

// register inserts t under its remote ID. At most one transfer may exist
// per ID; it reports false, without inserting, while a transfer for the
// same ID is still in flight.
func (r *transferRegistry) register(t *Transfer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.m[t.fileID]; exists {
		return false
	}
	r.m[t.fileID] = t
	return true
}

// sizes returns the tracked size of every registered transfer, copied
// under the lock in one critical section.
func (r *transferRegistry) sizes() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.m))
	for id, t := range r.m {
		out[id] = t.size
	}
	return out
}

// remove deletes the entry for id. It reports false when the registry was
// already torn down or holds no such entry; completions racing a closed
// registry are expected during shutdown and must be tolerated.
func (r *transferRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if _, ok := r.m[id]; !ok {
		return false
	}
	delete(r.m, id)
	return true
}

func (r *transferRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

// close tears the registry down. In-flight transfers keep running; their
// completion callbacks become no-ops.
func (r *transferRegistry) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.m = make(map[string]*Transfer)
}
