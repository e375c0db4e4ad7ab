// Package errs implements the error taxonomy the sync engine propagates:
// fatal mailbox errors, transient errors, per-message errors, and the
// non-error "bounce unparseable" outcome.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrAuth              = errors.New("imap authentication failed")
	ErrMailboxNotFound   = errors.New("mailbox not found")
	ErrDecryptionFailed  = errors.New("credential decryption failed")
	ErrBounceUnparseable = errors.New("bounce message could not be parsed")
)

// FatalMailboxError is terminal for a single mailbox: authentication
// failure, decryption failure, or persistently malformed config. The
// coordinator sets Mailbox.status = ERROR and ends the cycle.
type FatalMailboxError struct {
	MailboxID string
	Cause     error
}

func Fatal(mailboxID string, cause error) *FatalMailboxError {
	return &FatalMailboxError{MailboxID: mailboxID, Cause: cause}
}

func (e *FatalMailboxError) Error() string {
	return fmt.Sprintf("mailbox %s: fatal: %v", e.MailboxID, e.Cause)
}

func (e *FatalMailboxError) Unwrap() error { return e.Cause }

// TransientError covers IMAP timeouts, network errors, and store
// unavailability encountered mid-fetch or mid-persist. The current cycle
// aborts; the checkpoint reflects only what was already persisted.
type TransientError struct {
	Cause error
}

func Transient(cause error) *TransientError {
	return &TransientError{Cause: cause}
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// PerMessageError is a parse, validation, or write failure scoped to one
// message. The coordinator logs it and skips the message without
// advancing the checkpoint past its UID.
type PerMessageError struct {
	UID   uint32
	Cause error
}

func PerMessage(uid uint32, cause error) *PerMessageError {
	return &PerMessageError{UID: uid, Cause: cause}
}

func (e *PerMessageError) Error() string {
	return fmt.Sprintf("uid %d: %v", e.UID, e.Cause)
}

func (e *PerMessageError) Unwrap() error { return e.Cause }

// IsFatal reports whether err (or something it wraps) is a FatalMailboxError.
func IsFatal(err error) bool {
	var fatal *FatalMailboxError
	return errors.As(err, &fatal)
}

// IsTransient reports whether err (or something it wraps) is a TransientError.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
