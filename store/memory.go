package store

import (
	"bytes"
	"sort"
	"sync"
)

// Memory is an ordered, in-memory KV backend, used for tests and for any
// embedding that doesn't need the data to survive a restart (spec §4.B:
// "optional in-memory backing for tests").
type Memory struct {
	mu   sync.RWMutex
	keys [][]byte // kept sorted
	vals map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{vals: make(map[string][]byte)}
}

func (m *Memory) search(key []byte) int {
	return sort.Search(len(m.keys), func(i int) bool {
		return bytes.Compare(m.keys[i], key) >= 0
	})
}

func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vals[string(key)]
	if !ok {
		return nil, notFound("Memory.Get")
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(key, value)
	return nil
}

func (m *Memory) putLocked(key, value []byte) {
	k := string(key)
	if _, exists := m.vals[k]; !exists {
		i := m.search(key)
		kc := append([]byte(nil), key...)
		m.keys = append(m.keys, nil)
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = kc
	}
	vc := append([]byte(nil), value...)
	m.vals[k] = vc
}

func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(key)
	return nil
}

func (m *Memory) deleteLocked(key []byte) {
	k := string(key)
	if _, exists := m.vals[k]; !exists {
		return
	}
	delete(m.vals, k)
	i := m.search(key)
	if i < len(m.keys) && bytes.Equal(m.keys[i], key) {
		m.keys = append(m.keys[:i], m.keys[i+1:]...)
	}
}

func (m *Memory) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	m.mu.RLock()
	// Snapshot the matching keys under the read lock, then invoke fn
	// outside of it so a callback that itself calls back into the store
	// (e.g. to delete what it just read) can't deadlock.
	start := m.search(prefix)
	var matched [][]byte
	for i := start; i < len(m.keys); i++ {
		if !bytes.HasPrefix(m.keys[i], prefix) {
			break
		}
		matched = append(matched, append([]byte(nil), m.keys[i]...))
	}
	values := make([][]byte, len(matched))
	for i, k := range matched {
		values[i] = append([]byte(nil), m.vals[string(k)]...)
	}
	m.mu.RUnlock()

	for i, k := range matched {
		if err := fn(k, values[i]); err != nil {
			if err == ErrStopIteration {
				return nil
			}
			return err
		}
	}
	return nil
}

func (m *Memory) NewBatch() Batch { return &memoryBatch{m: m} }

func (m *Memory) Close() error { return nil }

type memoryOp struct {
	key    []byte
	value  []byte
	delete bool
}

type memoryBatch struct {
	m   *Memory
	ops []memoryOp
}

func (b *memoryBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memoryOp{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

func (b *memoryBatch) Delete(key []byte) {
	b.ops = append(b.ops, memoryOp{key: append([]byte(nil), key...), delete: true})
}

func (b *memoryBatch) Commit() error {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	for _, op := range b.ops {
		if op.delete {
			b.m.deleteLocked(op.key)
		} else {
			b.m.putLocked(op.key, op.value)
		}
	}
	b.ops = nil
	return nil
}

func (b *memoryBatch) Abort() { b.ops = nil }
