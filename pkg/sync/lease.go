package sync

import (
	stdsync "sync"

	"staffsync/pkg/records"
)

// leaseTable enforces at most one in-flight mutating sync per entity
// type. Dry-run analysis never takes a lease, so it can run concurrently
// with other dry-runs or with a different entity type's mutating sync.
// This is the sole concurrency-control primitive the core needs; no
// multi-node coordination is in scope.
type leaseTable struct {
	mu   stdsync.Mutex
	held map[records.EntityType]bool
}

func newLeaseTable() *leaseTable {
	return &leaseTable{held: make(map[records.EntityType]bool)}
}

// acquire takes the lease for an entity type. Returns false without
// blocking when another sync already holds it.
func (l *leaseTable) acquire(entityType records.EntityType) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[entityType] {
		return false
	}
	l.held[entityType] = true
	return true
}

// release frees the lease.
func (l *leaseTable) release(entityType records.EntityType) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, entityType)
}
