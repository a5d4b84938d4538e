package asyncsync

import "github.com/llxisdsh/pb"

// keyedMutexEntry is one key's lock plus its reference count, the same
// shape rwlock_group.go's rwLockGroupEntry uses.
type keyedMutexEntry struct {
	mu  *Mutex
	ref int32
}

// KeyedMutex provides per-key exclusive locking: a Mutex for a given key is
// created on first use and removed once its reference count returns to
// zero, so an unbounded key space costs nothing once callers stop touching
// a given key. Grounded on rwlock_group.go's RWLockGroup[K], ported from
// the teacher's own Map[K,V].Compute onto pb.MapOf[K,V].ProcessEntry (the
// same API oncegroup.go already uses) so create-or-join and
// decrement-or-delete are each a single atomic map operation.
type KeyedMutex[K comparable] struct {
	_ noCopy

	m                 pb.MapOf[K, *keyedMutexEntry]
	syncContinuations bool
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex[K comparable](runContinuationsSynchronously bool) *KeyedMutex[K] {
	return &KeyedMutex[K]{syncContinuations: runContinuationsSynchronously}
}

// Lock acquires the mutex for key, creating it if this is the first caller
// currently holding or waiting on it.
func (g *KeyedMutex[K]) Lock(key K, token CancelToken) (*Releaser, error) {
	var entry *keyedMutexEntry
	g.m.ProcessEntry(key, func(l *pb.EntryOf[K, *keyedMutexEntry]) (*pb.EntryOf[K, *keyedMutexEntry], *keyedMutexEntry, bool) {
		if l != nil {
			entry = l.Value
			entry.ref++
			return l, entry, true
		}
		entry = &keyedMutexEntry{mu: NewMutex(g.syncContinuations), ref: 1}
		return &pb.EntryOf[K, *keyedMutexEntry]{Value: entry}, entry, false
	})

	inner, err := entry.mu.Enter(token)
	if err != nil {
		g.release(key, entry)
		return nil, err
	}
	r := newReleaser(func() {
		inner.Dispose()
		g.release(key, entry)
	})
	return &r, nil
}

func (g *KeyedMutex[K]) release(key K, entry *keyedMutexEntry) {
	g.m.ProcessEntry(key, func(l *pb.EntryOf[K, *keyedMutexEntry]) (*pb.EntryOf[K, *keyedMutexEntry], *keyedMutexEntry, bool) {
		if l == nil || l.Value != entry {
			return l, nil, false
		}
		entry.ref--
		if entry.ref <= 0 {
			return nil, nil, true
		}
		return l, nil, false
	})
}

// keyedSemaphoreEntry is one key's semaphore plus its reference count.
type keyedSemaphoreEntry struct {
	sem *Semaphore
	ref int32
}

// KeyedSemaphore is KeyedMutex generalized to N permits per key, for
// limiting concurrency per shard/tenant/resource-id rather than per
// process.
type KeyedSemaphore[K comparable] struct {
	_ noCopy

	m                 pb.MapOf[K, *keyedSemaphoreEntry]
	permits           int64
	syncContinuations bool
}

// NewKeyedSemaphore returns an empty KeyedSemaphore; each key gets its own
// Semaphore with the given number of initial permits the first time it is
// acquired.
func NewKeyedSemaphore[K comparable](initialPermitsPerKey int64, runContinuationsSynchronously bool) *KeyedSemaphore[K] {
	return &KeyedSemaphore[K]{permits: initialPermitsPerKey, syncContinuations: runContinuationsSynchronously}
}

// Acquire takes one permit for key, creating that key's semaphore if this
// is the first caller currently holding or waiting on it.
func (g *KeyedSemaphore[K]) Acquire(key K, token CancelToken) (*Releaser, error) {
	var entry *keyedSemaphoreEntry
	g.m.ProcessEntry(key, func(l *pb.EntryOf[K, *keyedSemaphoreEntry]) (*pb.EntryOf[K, *keyedSemaphoreEntry], *keyedSemaphoreEntry, bool) {
		if l != nil {
			entry = l.Value
			entry.ref++
			return l, entry, true
		}
		entry = &keyedSemaphoreEntry{sem: NewSemaphore(g.permits, g.syncContinuations), ref: 1}
		return &pb.EntryOf[K, *keyedSemaphoreEntry]{Value: entry}, entry, false
	})

	inner, err := entry.sem.Acquire(token)
	if err != nil {
		g.release(key, entry)
		return nil, err
	}
	r := newReleaser(func() {
		inner.Dispose()
		g.release(key, entry)
	})
	return &r, nil
}

func (g *KeyedSemaphore[K]) release(key K, entry *keyedSemaphoreEntry) {
	g.m.ProcessEntry(key, func(l *pb.EntryOf[K, *keyedSemaphoreEntry]) (*pb.EntryOf[K, *keyedSemaphoreEntry], *keyedSemaphoreEntry, bool) {
		if l == nil || l.Value != entry {
			return l, nil, false
		}
		entry.ref--
		if entry.ref <= 0 {
			return nil, nil, true
		}
		return l, nil, false
	})
}
