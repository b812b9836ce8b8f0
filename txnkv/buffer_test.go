package txnkv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferOverwrite(t *testing.T) {
	buf := newMemBuffer()
	buf.Put([]byte("k"), []byte("v1"))
	buf.Put([]byte("k"), []byte("longer"))

	e := buf.Get([]byte("k"))
	require.NotNil(t, e)
	assert.Equal(t, "longer", string(e.value))
	assert.Equal(t, 1, buf.Len())
	assert.Equal(t, len("k")+len("longer"), buf.Size())
}

func TestBufferTombstone(t *testing.T) {
	buf := newMemBuffer()
	buf.Put([]byte("k"), []byte("v"))
	buf.Delete([]byte("k"))

	e := buf.Get([]byte("k"))
	require.NotNil(t, e)
	assert.Equal(t, entryDelete, e.kind)
	assert.Nil(t, e.value)
	// The tombstone still counts as an entry.
	assert.Equal(t, 1, buf.Len())
}

func TestBufferIterBounds(t *testing.T) {
	buf := newMemBuffer()
	for _, k := range []string{"d", "a", "c", "b"} {
		buf.Put([]byte(k), []byte("v"+k))
	}

	it := buf.Iter([]byte("b"), []byte("d"))
	var keys []string
	for it.Valid() {
		keys = append(keys, string(it.Key()))
		it.Next()
	}
	assert.Equal(t, []string{"b", "c"}, keys)

	// A nil end bound runs to the last entry.
	it = buf.Iter([]byte("c"), nil)
	keys = keys[:0]
	for it.Valid() {
		keys = append(keys, string(it.Key()))
		it.Next()
	}
	assert.Equal(t, []string{"c", "d"}, keys)
}

func TestBufferForEachStopsEarly(t *testing.T) {
	buf := newMemBuffer()
	buf.Put([]byte("a"), []byte("1"))
	buf.Put([]byte("b"), []byte("2"))
	buf.Put([]byte("c"), []byte("3"))

	var seen int
	buf.ForEach(func(e *bufferEntry) bool {
		seen++
		return seen < 2
	})
	assert.Equal(t, 2, seen)
}
