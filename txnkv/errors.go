package txnkv

import (
	"github.com/pingcap/errors"
)

var (
	// ErrNotExist means the key has no visible version at the read
	// timestamp.
	ErrNotExist = errors.New("key does not exist")

	// ErrTxnConflict means another transaction won a conflicting write or
	// held an unexpired lock. The transaction has been rolled back; the
	// caller may re-run its business logic in a fresh transaction, the
	// client never re-executes it on its own.
	ErrTxnConflict = errors.New("transaction conflict")

	// ErrInvalidTxn means an operation was attempted on a transaction in a
	// terminal state.
	ErrInvalidTxn = errors.New("transaction is finished or rolled back")

	// ErrInternalProtocol means a storage node answered in a way the
	// commit protocol does not allow, e.g. a primary lock that vanished
	// without a rollback or commit record.
	ErrInternalProtocol = errors.New("protocol violation")

	// ErrEmptyKey is returned for operations on a zero length key.
	ErrEmptyKey = errors.New("key cannot be empty")

	// ErrResultUndetermined means the commit of the primary key failed in
	// transit and the transaction's fate is unknown: it may or may not have
	// committed. The caller must not assume either outcome.
	ErrResultUndetermined = errors.New("execution result undetermined")
)

// IsRetryableTxnError reports whether the error means the whole transaction
// can be retried by re-running its logic in a new transaction.
func IsRetryableTxnError(err error) bool {
	return errors.Cause(err) == ErrTxnConflict
}
