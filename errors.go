package stash

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a Stash after Close.
var ErrClosed = errors.New("stash: closed")

// DecodeError reports a remote value that the codec could not decode.
// It is never downgraded to a miss: a poisoned shared entry must be visible
// rather than trigger a refetch from every reader.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stash: decode %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a fetched value that the codec could not encode.
// Neither tier is written when it occurs.
type EncodeError struct {
	Key string
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("stash: encode %q: %v", e.Key, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// LockAcquisitionError reports that the fetch lock for Key could not be
// obtained within the attempt ceiling. Err is the last attempt's failure,
// usually lock.ErrNotObtained.
type LockAcquisitionError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *LockAcquisitionError) Error() string {
	return fmt.Sprintf("stash: lock for %q not acquired after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *LockAcquisitionError) Unwrap() error { return e.Err }
