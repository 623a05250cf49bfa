package app

import (
	"errors"
	"os"
	"testing"
)

func TestAskSecret(t *testing.T) {
	p := NewScriptedPrompter("pw", "")

	got, err := askSecret(p, "Passphrase: ")
	if err != nil || got != "pw" {
		t.Fatalf("askSecret() = %q, %v", got, err)
	}
	if _, err := askSecret(p, "Passphrase: "); !errors.Is(err, ErrCancelled) {
		t.Errorf("empty answer: err = %v, want ErrCancelled", err)
	}
	if _, err := askSecret(p, "Passphrase: "); !errors.Is(err, ErrCancelled) {
		t.Errorf("EOF: err = %v, want ErrCancelled", err)
	}
	if len(p.Asked()) != 3 {
		t.Errorf("Asked() = %v", p.Asked())
	}
}

func TestAskNewSecret(t *testing.T) {
	if got, err := askNewSecret(NewScriptedPrompter("a", "a"), "New: "); err != nil || got != "a" {
		t.Errorf("matching entries: %q, %v", got, err)
	}
	if _, err := askNewSecret(NewScriptedPrompter("a", "b"), "New: "); err == nil {
		t.Error("mismatched entries accepted")
	}
}

func TestAskChoice(t *testing.T) {
	options := []string{"passphrase", "keyfiles"}

	tests := []struct {
		answer  string
		want    int
		wantErr error
	}{
		{answer: "1", want: 0},
		{answer: "2", want: 1},
		{answer: "KeyFiles", want: 1},
		{answer: " ", wantErr: ErrCancelled},
	}
	for _, tt := range tests {
		got, err := askChoice(NewScriptedPrompter(tt.answer), "Mode", options)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("askChoice(%q) err = %v, want %v", tt.answer, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("askChoice(%q) = %d, %v; want %d", tt.answer, got, err, tt.want)
		}
	}

	if _, err := askChoice(NewScriptedPrompter("3"), "Mode", options); err == nil || errors.Is(err, ErrCancelled) {
		t.Errorf("out of range choice: err = %v", err)
	}
}

func TestTerminalPrompter_LineInput(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	go func() {
		w.WriteString("secret\r\nstatus\nlast")
		w.Close()
	}()

	var out discard
	p := NewTerminalPrompter(r, &out)

	if got, err := p.Passphrase("pw: "); err != nil || got != "secret" {
		t.Errorf("Passphrase() = %q, %v", got, err)
	}
	if got, err := p.ReadLine("> "); err != nil || got != "status" {
		t.Errorf("ReadLine() = %q, %v", got, err)
	}
	if got, err := p.ReadLine("> "); err != nil || got != "last" {
		t.Errorf("ReadLine() without newline = %q, %v", got, err)
	}
	if _, err := p.ReadLine("> "); err == nil {
		t.Error("ReadLine() after EOF succeeded")
	}
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }
