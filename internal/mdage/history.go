package mdage

import (
	"context"
	"time"
)

// Operation kinds recorded in the history.
const (
	OpEncrypt = "encrypt"
	OpDecrypt = "decrypt"
	OpUnlock  = "unlock"
	OpKeygen  = "keygen"
)

// Operation statuses.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Operation is one recorded note operation. It never carries plaintext,
// passphrases or identities.
type Operation struct {
	ID         string
	SessionID  string
	Kind       string
	Note       string
	Method     string
	Blocks     int
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// History persists operations across sessions.
type History interface {
	Record(ctx context.Context, op Operation) error
	// Recent returns up to limit operations, newest first.
	Recent(ctx context.Context, limit int) ([]Operation, error)
	Close() error
}
