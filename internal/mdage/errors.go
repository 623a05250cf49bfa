package mdage

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"mdage/internal/block"
)

// Sentinel errors. Every failure returned by this package matches exactly one
// of these with errors.Is.
var (
	ErrMissingPassword      = errors.New("passphrase is required")
	ErrNoRecipients         = errors.New("no recipients available")
	ErrNoDecryptionMethod   = errors.New("no decryption method provided")
	ErrEncryptionFailed     = errors.New("encryption failed")
	ErrDecryptionFailed     = errors.New("decryption failed")
	ErrAutoDecryptionFailed = errors.New("automatic decryption failed")
	ErrKeyFileRead          = errors.New("key file read failed")
	ErrFormat               = block.ErrFormat
	ErrNoIdentitiesFound    = errors.New("no identities found in key file")
	ErrMissingPassphrase    = errors.New("no passphrase supplied for key file")
	ErrAllKeyFilesFailed    = errors.New("failed to unlock any key file")
	ErrInvalidMode          = errors.New("invalid encryption mode")
)

// Attempt records one credential source tried by DecryptIntelligent.
type Attempt struct {
	Method string
	Err    error
}

// AutoDecryptError is returned when every cached credential source failed.
// Attempts is empty when there was nothing cached to try.
type AutoDecryptError struct {
	Attempts []Attempt
}

func (e *AutoDecryptError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrAutoDecryptionFailed.Error() + ": no cached credentials"
	}
	msgs := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		msgs[i] = fmt.Sprintf("%s: %v", a.Method, a.Err)
	}
	return ErrAutoDecryptionFailed.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *AutoDecryptError) Is(target error) bool { return target == ErrAutoDecryptionFailed }

// UnlockError is returned by UnlockKeyFiles when no key file could be unlocked.
type UnlockError struct {
	Errors map[string]error
}

func (e *UnlockError) Error() string {
	return ErrAllKeyFilesFailed.Error() + ": " + joinPathErrors(e.Errors)
}

func (e *UnlockError) Is(target error) bool { return target == ErrAllKeyFilesFailed }

func joinPathErrors(errs map[string]error) string {
	paths := make([]string, 0, len(errs))
	for p := range errs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	msgs := make([]string, len(paths))
	for i, p := range paths {
		msgs[i] = fmt.Sprintf("%s: %v", p, errs[p])
	}
	return strings.Join(msgs, "; ")
}

// Error pairs a sentinel kind with a specific, user-facing message.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func newError(kind error, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }
