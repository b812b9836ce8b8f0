package txnkv

import (
	"bytes"

	"github.com/google/btree"
)

// entryKind distinguishes a buffered put from a buffered delete. A delete
// must stay in the buffer as a tombstone so the transaction's own reads hide
// the stored version and commit emits a delete mutation.
type entryKind byte

const (
	entryPut entryKind = iota
	entryDelete
)

type bufferEntry struct {
	key   []byte
	value []byte
	kind  entryKind
}

func (e *bufferEntry) Less(other btree.Item) bool {
	return bytes.Compare(e.key, other.(*bufferEntry).key) < 0
}

// memBuffer holds a transaction's uncommitted mutations in key order. It is
// owned by the one goroutine driving the transaction and is not locked.
type memBuffer struct {
	tree *btree.BTree
	size int
}

func newMemBuffer() *memBuffer {
	return &memBuffer{tree: btree.New(btreeDegree)}
}

const btreeDegree = 32

// Get returns the buffered entry for key, or nil.
func (m *memBuffer) Get(key []byte) *bufferEntry {
	item := m.tree.Get(&bufferEntry{key: key})
	if item == nil {
		return nil
	}
	return item.(*bufferEntry)
}

// Put buffers a write of value to key.
func (m *memBuffer) Put(key, value []byte) {
	m.replace(&bufferEntry{key: key, value: value, kind: entryPut})
}

// Delete buffers a tombstone for key.
func (m *memBuffer) Delete(key []byte) {
	m.replace(&bufferEntry{key: key, kind: entryDelete})
}

func (m *memBuffer) replace(e *bufferEntry) {
	old := m.tree.ReplaceOrInsert(e)
	if old != nil {
		m.size -= len(old.(*bufferEntry).key) + len(old.(*bufferEntry).value)
	}
	m.size += len(e.key) + len(e.value)
}

// Len returns the number of buffered entries, tombstones included.
func (m *memBuffer) Len() int {
	return m.tree.Len()
}

// Size returns the total bytes of buffered keys and values.
func (m *memBuffer) Size() int {
	return m.size
}

// ForEach walks entries in key order. Returning false stops the walk.
func (m *memBuffer) ForEach(f func(e *bufferEntry) bool) {
	m.tree.Ascend(func(item btree.Item) bool {
		return f(item.(*bufferEntry))
	})
}

// bufferIter iterates buffered entries within [start, end) in key order. A
// nil end means unbounded.
type bufferIter struct {
	entries []*bufferEntry
	idx     int
}

func (m *memBuffer) Iter(start, end []byte) *bufferIter {
	it := &bufferIter{}
	m.tree.AscendGreaterOrEqual(&bufferEntry{key: start}, func(item btree.Item) bool {
		e := item.(*bufferEntry)
		if len(end) > 0 && bytes.Compare(e.key, end) >= 0 {
			return false
		}
		it.entries = append(it.entries, e)
		return true
	})
	return it
}

func (it *bufferIter) Valid() bool {
	return it.idx < len(it.entries)
}

func (it *bufferIter) Key() []byte {
	return it.entries[it.idx].key
}

func (it *bufferIter) Value() []byte {
	return it.entries[it.idx].value
}

func (it *bufferIter) isDelete() bool {
	return it.entries[it.idx].kind == entryDelete
}

func (it *bufferIter) Next() {
	it.idx++
}
