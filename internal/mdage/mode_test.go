package mdage

import (
	"errors"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModePassphrase},
		{in: "passphrase", want: ModePassphrase},
		{in: "keyfiles", want: ModeKeyFiles},
		{in: "mixed", want: ModeMixed},
		{in: "Keyfiles", wantErr: true},
		{in: "gpg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMode) {
					t.Errorf("ParseMode(%q) error = %v, want ErrInvalidMode", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMode_Concrete(t *testing.T) {
	if !ModePassphrase.Concrete() || !ModeKeyFiles.Concrete() {
		t.Error("passphrase and keyfiles must be concrete")
	}
	if ModeMixed.Concrete() || Mode("other").Concrete() {
		t.Error("mixed and unknown modes must not be concrete")
	}
}
