package app

import (
	"errors"

	"mdage/internal/mdage"
)

// noteOperation tracks one history entry from start to finish. Operations
// live in memory until finish hands them to the history store.
type noteOperation struct {
	op    mdage.Operation
	clock mdage.Clock
}

func newNoteOperation(kind, note, sessionID string, clock mdage.Clock, ids mdage.IDGenerator) *noteOperation {
	return &noteOperation{
		op: mdage.Operation{
			ID:        ids.New(),
			SessionID: sessionID,
			Kind:      kind,
			Note:      note,
			StartedAt: clock.Now(),
		},
		clock: clock,
	}
}

// finish stamps the outcome. A cancelled prompt is recorded as cancelled,
// not failed.
func (o *noteOperation) finish(method string, blocks int, err error) mdage.Operation {
	o.op.Method = method
	o.op.Blocks = blocks
	o.op.FinishedAt = o.clock.Now()
	switch {
	case err == nil:
		o.op.Status = mdage.StatusOK
	case errors.Is(err, ErrCancelled):
		o.op.Status = mdage.StatusCancelled
	default:
		o.op.Status = mdage.StatusFailed
		o.op.Error = err.Error()
	}
	return o.op
}
