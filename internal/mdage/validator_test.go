package mdage_test

import (
	"testing"

	"mdage/internal/mdage"
	"mdage/internal/testutil"
)

func TestValidator_Validate(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, mdage.Settings{})
	env.WriteKeyFile(t, "unlocked.age", "pw")
	env.WriteKeyFile(t, "locked.age", "pw")
	if _, err := env.Service.KeyFiles().Unlock("unlocked.age", "pw"); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	v := mdage.NewValidator(env.Service.KeyFiles())

	tests := []struct {
		name         string
		mode         mdage.Mode
		keyFiles     []string
		recipients   []string
		wantValid    bool
		wantWarnings int
	}{
		{name: "passphrase always valid", mode: mdage.ModePassphrase, wantValid: true},
		{name: "keyfiles with nothing configured", mode: mdage.ModeKeyFiles, wantValid: false},
		{name: "keyfiles with recipient only", mode: mdage.ModeKeyFiles, recipients: []string{"age1x"}, wantValid: true},
		{name: "keyfiles with unlocked file", mode: mdage.ModeKeyFiles, keyFiles: []string{"locked.age", "unlocked.age"}, wantValid: true},
		{name: "keyfiles with only locked files", mode: mdage.ModeKeyFiles, keyFiles: []string{"locked.age"}, wantValid: true, wantWarnings: 1},
		{name: "mixed with nothing configured", mode: mdage.ModeMixed, wantValid: true, wantWarnings: 1},
		{name: "mixed with key file", mode: mdage.ModeMixed, keyFiles: []string{"locked.age"}, wantValid: true},
		{name: "unknown mode", mode: mdage.Mode("gpg"), wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := v.Validate(tt.mode, tt.keyFiles, tt.recipients)
			if res.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (error %q)", res.Valid, tt.wantValid, res.Error)
			}
			if !res.Valid && res.Error == "" {
				t.Error("invalid result without an error message")
			}
			if len(res.Warnings) != tt.wantWarnings {
				t.Errorf("Warnings = %v, want %d", res.Warnings, tt.wantWarnings)
			}
		})
	}
}
