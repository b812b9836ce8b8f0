package txnkv

import (
	"bytes"

	"github.com/pingcap/errors"
)

// unionIter merges a transaction's buffered mutations with a snapshot scan.
// On equal keys the buffer wins, and buffered tombstones hide the stored
// version entirely.
type unionIter struct {
	bufIt  *bufferIter
	snapIt *Scanner
	valid  bool
	curBuf bool
}

func newUnionIter(bufIt *bufferIter, snapIt *Scanner) (*unionIter, error) {
	it := &unionIter{bufIt: bufIt, snapIt: snapIt, valid: true}
	if err := it.settle(); err != nil {
		return nil, errors.Trace(err)
	}
	return it, nil
}

// settle positions the iterator on the next visible pair, skipping
// tombstones and shadowed snapshot entries.
func (it *unionIter) settle() error {
	for {
		bufValid := it.bufIt.Valid()
		snapValid := it.snapIt.Valid()
		if !bufValid && !snapValid {
			it.valid = false
			return nil
		}

		if bufValid && snapValid {
			switch bytes.Compare(it.bufIt.Key(), it.snapIt.Key()) {
			case 0:
				// Buffer shadows the stored version.
				if err := it.snapIt.Next(); err != nil {
					return errors.Trace(err)
				}
				if it.bufIt.isDelete() {
					it.bufIt.Next()
					continue
				}
				it.curBuf = true
				return nil
			case -1:
				if it.bufIt.isDelete() {
					it.bufIt.Next()
					continue
				}
				it.curBuf = true
				return nil
			default:
				it.curBuf = false
				return nil
			}
		}

		if bufValid {
			if it.bufIt.isDelete() {
				it.bufIt.Next()
				continue
			}
			it.curBuf = true
			return nil
		}

		it.curBuf = false
		return nil
	}
}

func (it *unionIter) Valid() bool {
	return it.valid
}

func (it *unionIter) Key() []byte {
	if it.curBuf {
		return it.bufIt.Key()
	}
	return it.snapIt.Key()
}

func (it *unionIter) Value() []byte {
	if it.curBuf {
		return it.bufIt.Value()
	}
	return it.snapIt.Value()
}

func (it *unionIter) Next() error {
	if !it.valid {
		return errors.New("union iterator is invalid")
	}
	if it.curBuf {
		it.bufIt.Next()
	} else {
		if err := it.snapIt.Next(); err != nil {
			return errors.Trace(err)
		}
	}
	return it.settle()
}

func (it *unionIter) Close() {
	it.valid = false
	it.snapIt.Close()
}
