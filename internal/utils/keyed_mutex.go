package utils

import "sync"

// KeyedMutex serializes work per key. Handlers lock their guild id so that
// concurrent events for the same guild never interleave, while different
// guilds proceed in parallel.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *KeyedMutex) Lock(key string) {
	k.mutex(key).Lock()
}

func (k *KeyedMutex) Unlock(key string) {
	k.mutex(key).Unlock()
}

func (k *KeyedMutex) mutex(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	return lock
}
