package keylock

import "sync"

// KeyLock serializes work per key. Lifecycle operations for one notebook
// name must not interleave; operations on different names stay independent.
//
// Locks are never evicted. The key space here is notebook names, which is
// small and caller-controlled, so the map stays tiny.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *KeyLock {
	return &KeyLock{locks: map[string]*sync.Mutex{}}
}

func (k *KeyLock) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
}

func (k *KeyLock) Unlock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	k.mu.Unlock()
	if ok {
		m.Unlock()
	}
}
