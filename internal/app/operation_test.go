package app

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"mdage/internal/mdage"
	"mdage/internal/testutil"
)

func TestNoteOperation_Finish(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus string
		wantError  string
	}{
		{name: "success", wantStatus: mdage.StatusOK},
		{name: "cancelled", err: fmt.Errorf("prompt: %w", ErrCancelled), wantStatus: mdage.StatusCancelled},
		{name: "failure", err: errors.New("decryption failed"), wantStatus: mdage.StatusFailed, wantError: "decryption failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := testutil.FixedClock()
			ids := &testutil.SequenceIDs{}
			o := newNoteOperation(mdage.OpDecrypt, "a.md", "s-1", clock, ids)
			clock.Advance(2 * time.Second)

			op := o.finish("cached_password", 2, tt.err)

			if op.ID != "session-1" || op.SessionID != "s-1" || op.Note != "a.md" || op.Kind != mdage.OpDecrypt {
				t.Errorf("identity fields = %+v", op)
			}
			if op.Status != tt.wantStatus || op.Error != tt.wantError {
				t.Errorf("Status, Error = %q, %q; want %q, %q", op.Status, op.Error, tt.wantStatus, tt.wantError)
			}
			if got := op.FinishedAt.Sub(op.StartedAt); got != 2*time.Second {
				t.Errorf("duration = %v, want 2s", got)
			}
			if op.Method != "cached_password" || op.Blocks != 2 {
				t.Errorf("Method, Blocks = %q, %d", op.Method, op.Blocks)
			}
		})
	}
}
