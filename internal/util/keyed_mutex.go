// ABOUTME: KeyedMutex serializes work per string key in first-come order
// ABOUTME: Used to keep turns within one conversation thread in submission order
package util

import "sync"

// KeyedMutex hands out one lock per key. Waiters on a key are granted the lock
// in the order their Lock calls arrived; the key is freed when nobody holds or
// awaits it.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	waiters []chan struct{}
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until the lock for key is held and returns its release func
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, held := k.locks[key]
	if !held {
		entry = &keyedEntry{}
		k.locks[key] = entry
		k.mu.Unlock()
	} else {
		turn := make(chan struct{})
		entry.waiters = append(entry.waiters, turn)
		k.mu.Unlock()
		<-turn
	}

	var once sync.Once
	return func() {
		once.Do(func() { k.unlock(key, entry) })
	}
}

// unlock hands the lock to the oldest waiter, or frees the key
func (k *KeyedMutex) unlock(key string, entry *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if len(entry.waiters) == 0 {
		delete(k.locks, key)
		return
	}
	next := entry.waiters[0]
	entry.waiters = entry.waiters[1:]
	close(next)
}

// Len returns the number of keys currently held or awaited
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
