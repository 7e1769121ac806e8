// Package lock provides per-family locking so a single process never
// runs two refreshes of the same family concurrently. Cross-process
// safety comes from the database transaction, not from this lock.
package lock

import (
	"sync"
)

// familyMutex wraps a mutex with reference counting for cleanup.
type familyMutex struct {
	mu       sync.Mutex
	refCount int
}

// FamilyLock provides per-family locking for battle refreshes.
type FamilyLock struct {
	locks sync.Map // map[string]*familyMutex
	pool  sync.Pool
}

// NewFamilyLock creates a new FamilyLock instance.
func NewFamilyLock() *FamilyLock {
	return &FamilyLock{
		pool: sync.Pool{
			New: func() any {
				return &familyMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given family ID.
func (fl *FamilyLock) getLock(familyID string) *familyMutex {
	if v, ok := fl.locks.Load(familyID); ok {
		return v.(*familyMutex)
	}

	newLock := fl.pool.Get().(*familyMutex)
	newLock.refCount = 0

	// Store or load existing (handles race condition)
	actual, loaded := fl.locks.LoadOrStore(familyID, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		fl.pool.Put(newLock)
	}
	return actual.(*familyMutex)
}

// Lock acquires the lock for a family.
func (fl *FamilyLock) Lock(familyID string) {
	lock := fl.getLock(familyID)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for a family.
func (fl *FamilyLock) Unlock(familyID string) {
	if v, ok := fl.locks.Load(familyID); ok {
		lock := v.(*familyMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking. The poller
// uses this to skip a family whose refresh is already in flight.
func (fl *FamilyLock) TryLock(familyID string) bool {
	lock := fl.getLock(familyID)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// WithLock executes a function while holding the family's lock.
func (fl *FamilyLock) WithLock(familyID string, fn func() error) error {
	fl.Lock(familyID)
	defer fl.Unlock(familyID)
	return fn()
}
