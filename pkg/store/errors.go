package store

import "github.com/pkg/errors"

// Error wraps any failure to talk to the backing store: connection loss,
// timeout, or a protocol-level error (spec.md section 4.1). It is the sole
// error kind the breaker and the Check Coordinator need to recognize.
type Error struct {
	Op  string
	err error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.err.Error()
	}
	return e.Op + ": " + e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

// Wrap annotates err with the failing operation name and returns it as a
// *Error, the way choveylee-tlimiter's redis_store.go wraps redis failures
// with github.com/pkg/errors.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, err: errors.WithStack(err)}
}

// IsStoreError reports whether err (or anything it wraps) is a store Error.
func IsStoreError(err error) bool {
	var target *Error
	return errors.As(err, &target)
}
