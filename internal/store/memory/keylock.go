package memory

import (
	"slices"
	"sync"
)

// keyLocks serializes operations per logical key (an author, an unordered
// friend pair, a post). Keys are acquired in sorted order so that callers
// locking several keys at once cannot deadlock each other.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// Lock blocks until every key is held and returns the matching unlock.
func (k *keyLocks) Lock(keys ...string) (unlock func()) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*keyLock, 0, len(keys))
	for _, key := range keys {
		l := k.ref(key)
		l.mu.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			k.unref(keys[i], held[i])
		}
	}
}

func (k *keyLocks) ref(key string) *keyLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	return l
}

func (k *keyLocks) unref(key string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

func userKey(id string) string { return "user:" + id }
func usernameKey(n string) string { return "username:" + n }
func postKey(id string) string { return "post:" + id }
func pairKey(pair string) string { return "pair:" + pair }
