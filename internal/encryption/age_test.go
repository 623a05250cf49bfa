package encryption

import (
	"bytes"
	"strings"
	"testing"

	"filippo.io/age"
	"filippo.io/age/armor"

	"mdage/internal/config"
	"mdage/internal/mdage"
)

const testWorkFactor = 10

func newTestCrypto() *AgeCrypto {
	return NewAgeCrypto(testWorkFactor)
}

func TestAgeCrypto_SymmetricRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "unicode", input: []byte("pässwörd ✓\nline two")},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestCrypto()

			encrypted, err := c.EncryptSymmetric(tt.input, "test-passphrase")
			if err != nil {
				t.Fatalf("EncryptSymmetric() error = %v", err)
			}
			if len(tt.input) > 0 && bytes.Contains(encrypted, tt.input) {
				t.Error("encrypted output contains the plaintext")
			}

			decrypted, err := c.Decrypt(encrypted, mdage.Credentials{Passphrase: "test-passphrase"})
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted, tt.input) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(decrypted), len(tt.input))
			}
		})
	}
}

func TestAgeCrypto_WrongPassphrase(t *testing.T) {
	t.Parallel()
	c := newTestCrypto()

	encrypted, err := c.EncryptSymmetric([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("EncryptSymmetric() error = %v", err)
	}
	if _, err := c.Decrypt(encrypted, mdage.Credentials{Passphrase: "wrong"}); err == nil {
		t.Error("Decrypt() with wrong passphrase succeeded")
	}
}

func TestAgeCrypto_AsymmetricRoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestCrypto()

	id1, _ := c.GenerateIdentity()
	id2, _ := c.GenerateIdentity()
	rec1, err := c.DeriveRecipient(id1)
	if err != nil {
		t.Fatalf("DeriveRecipient() error = %v", err)
	}
	rec2, _ := c.DeriveRecipient(id2)

	encrypted, err := c.EncryptAsymmetric([]byte("shared secret"), []string{rec1, rec2})
	if err != nil {
		t.Fatalf("EncryptAsymmetric() error = %v", err)
	}

	for _, id := range []string{id1, id2} {
		got, err := c.Decrypt(encrypted, mdage.Credentials{Identities: []string{id}})
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if string(got) != "shared secret" {
			t.Errorf("Decrypt() = %q", got)
		}
	}

	other, _ := c.GenerateIdentity()
	if _, err := c.Decrypt(encrypted, mdage.Credentials{Identities: []string{other}}); err == nil {
		t.Error("Decrypt() with unrelated identity succeeded")
	}
}

func TestAgeCrypto_DecryptOffersAllCredentials(t *testing.T) {
	t.Parallel()
	c := newTestCrypto()

	id, _ := c.GenerateIdentity()
	rec, _ := c.DeriveRecipient(id)
	encrypted, err := c.EncryptAsymmetric([]byte("x"), []string{rec})
	if err != nil {
		t.Fatalf("EncryptAsymmetric() error = %v", err)
	}

	got, err := c.Decrypt(encrypted, mdage.Credentials{Passphrase: "unused", Identities: []string{id}})
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if string(got) != "x" {
		t.Errorf("Decrypt() = %q", got)
	}
}

func TestAgeCrypto_HybridIdentity(t *testing.T) {
	t.Parallel()
	c := newTestCrypto()

	hybrid, err := age.GenerateHybridIdentity()
	if err != nil {
		t.Fatalf("GenerateHybridIdentity() error = %v", err)
	}
	rec, err := c.DeriveRecipient(hybrid.String())
	if err != nil {
		t.Fatalf("DeriveRecipient() error = %v", err)
	}
	if !strings.HasPrefix(rec, hybridRecipientPrefix) {
		t.Errorf("recipient = %q, want %s prefix", rec, hybridRecipientPrefix)
	}

	encrypted, err := c.EncryptAsymmetric([]byte("pq"), []string{rec})
	if err != nil {
		t.Fatalf("EncryptAsymmetric() error = %v", err)
	}
	got, err := c.Decrypt(encrypted, mdage.Credentials{Identities: []string{hybrid.String()}})
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if string(got) != "pq" {
		t.Errorf("Decrypt() = %q", got)
	}
}

func TestAgeCrypto_DecryptArmored(t *testing.T) {
	t.Parallel()
	c := newTestCrypto()

	encrypted, err := c.EncryptSymmetric([]byte("armored"), "pw")
	if err != nil {
		t.Fatalf("EncryptSymmetric() error = %v", err)
	}
	armored, err := armorBytes(encrypted)
	if err != nil {
		t.Fatalf("armorBytes() error = %v", err)
	}
	if !bytes.HasPrefix(armored, []byte(armor.Header)) {
		t.Fatalf("armored output missing header: %q", armored[:40])
	}

	got, err := c.Decrypt(armored, mdage.Credentials{Passphrase: "pw"})
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if string(got) != "armored" {
		t.Errorf("Decrypt() = %q", got)
	}
}

func TestAgeCrypto_Errors(t *testing.T) {
	t.Parallel()
	c := newTestCrypto()

	if _, err := c.EncryptAsymmetric([]byte("x"), nil); err == nil {
		t.Error("EncryptAsymmetric() with no recipients succeeded")
	}
	if _, err := c.EncryptAsymmetric([]byte("x"), []string{"age1notakey"}); err == nil {
		t.Error("EncryptAsymmetric() with bad recipient succeeded")
	}
	if _, err := c.Decrypt([]byte("x"), mdage.Credentials{}); err == nil {
		t.Error("Decrypt() with no credentials succeeded")
	}
	if _, err := c.Decrypt([]byte("x"), mdage.Credentials{Identities: []string{"AGE-SECRET-KEY-1BAD"}}); err == nil {
		t.Error("Decrypt() with malformed identity succeeded")
	}
	if _, err := c.DeriveRecipient("not an identity"); err == nil {
		t.Error("DeriveRecipient() with malformed identity succeeded")
	}
}

func TestNewCryptoFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.EncryptionConfig
		wantErr bool
	}{
		{name: "age", cfg: config.EncryptionConfig{Type: "age"}},
		{name: "empty type defaults to age", cfg: config.EncryptionConfig{}},
		{name: "unknown type", cfg: config.EncryptionConfig{Type: "gpg"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewCryptoFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCryptoFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c == nil {
				t.Error("NewCryptoFromConfig() returned nil crypto")
			}
		})
	}
}
