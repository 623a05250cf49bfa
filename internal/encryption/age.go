package encryption

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"mdage/internal/mdage"
)

const (
	hybridIdentityPrefix  = "AGE-SECRET-KEY-PQ-1"
	hybridRecipientPrefix = "age1pq1"
)

// AgeCrypto implements mdage.Crypto using filippo.io/age. Passphrases use
// age's scrypt recipient; identities may be X25519 or post-quantum hybrid.
type AgeCrypto struct {
	// workFactor is the scrypt log2(N) used when encrypting with a passphrase.
	// Zero keeps age's default.
	workFactor int
}

var _ mdage.Crypto = (*AgeCrypto)(nil)

// NewAgeCrypto creates an AgeCrypto. A workFactor of zero uses age's default.
func NewAgeCrypto(workFactor int) *AgeCrypto {
	return &AgeCrypto{workFactor: workFactor}
}

// EncryptSymmetric encrypts plaintext with a scrypt passphrase recipient.
func (c *AgeCrypto) EncryptSymmetric(plaintext []byte, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if c.workFactor > 0 {
		recipient.SetWorkFactor(c.workFactor)
	}
	return encrypt(plaintext, recipient)
}

// EncryptAsymmetric encrypts plaintext to every recipient string.
func (c *AgeCrypto) EncryptAsymmetric(plaintext []byte, recipients []string) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients")
	}

	parsed := make([]age.Recipient, 0, len(recipients))
	for _, r := range recipients {
		rec, err := parseRecipient(r)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, rec)
	}
	return encrypt(plaintext, parsed...)
}

// Decrypt decrypts a binary or armored age payload, offering every
// credential to age at once.
func (c *AgeCrypto) Decrypt(ciphertext []byte, creds mdage.Credentials) ([]byte, error) {
	var identities []age.Identity

	if creds.Passphrase != "" {
		id, err := age.NewScryptIdentity(creds.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("creating scrypt identity: %w", err)
		}
		identities = append(identities, id)
	}
	for _, s := range creds.Identities {
		id, err := parseIdentity(s)
		if err != nil {
			return nil, err
		}
		identities = append(identities, id)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no credentials")
	}

	var src io.Reader = bytes.NewReader(ciphertext)
	if bytes.HasPrefix(bytes.TrimSpace(ciphertext), []byte(armor.Header)) {
		src = armor.NewReader(bytes.NewReader(bytes.TrimSpace(ciphertext)))
	}

	decReader, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, fmt.Errorf("creating decrypted reader: %w", err)
	}

	plaintext, err := io.ReadAll(decReader)
	if err != nil {
		return nil, fmt.Errorf("decrypting data: %w", err)
	}
	return plaintext, nil
}

// DeriveRecipient returns the public key that matches identity.
func (c *AgeCrypto) DeriveRecipient(identity string) (string, error) {
	id, err := parseIdentity(identity)
	if err != nil {
		return "", err
	}
	switch id := id.(type) {
	case *age.X25519Identity:
		return id.Recipient().String(), nil
	case *age.HybridIdentity:
		return id.Recipient().String(), nil
	default:
		return "", fmt.Errorf("unsupported identity type %T", id)
	}
}

// GenerateIdentity returns a new X25519 identity.
func (c *AgeCrypto) GenerateIdentity() (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating key pair: %w", err)
	}
	return identity.String(), nil
}

func encrypt(plaintext []byte, recipients ...age.Recipient) ([]byte, error) {
	var buf bytes.Buffer

	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("encrypting data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

func parseIdentity(s string) (age.Identity, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, hybridIdentityPrefix) {
		id, err := age.ParseHybridIdentity(s)
		if err != nil {
			return nil, fmt.Errorf("parsing hybrid identity: %w", err)
		}
		return id, nil
	}
	id, err := age.ParseX25519Identity(s)
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	return id, nil
}

func parseRecipient(s string) (age.Recipient, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, hybridRecipientPrefix) {
		rec, err := age.ParseHybridRecipient(s)
		if err != nil {
			return nil, fmt.Errorf("parsing hybrid recipient %q: %w", s, err)
		}
		return rec, nil
	}
	rec, err := age.ParseX25519Recipient(s)
	if err != nil {
		return nil, fmt.Errorf("parsing recipient %q: %w", s, err)
	}
	return rec, nil
}
