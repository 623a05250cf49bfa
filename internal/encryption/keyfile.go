package encryption

import (
	"bytes"
	"fmt"
	"time"

	"filippo.io/age/armor"

	"mdage/internal/mdage"
)

// KeyFileGenerator creates passphrase-protected key files in the format
// read by mdage.KeyFileCache: an armored age file whose plaintext is a
// commented identity, as produced by `age-keygen | age -p -a`.
type KeyFileGenerator struct {
	crypto   mdage.Crypto
	files    mdage.FileAccess
	resolver *mdage.PathResolver
	clock    mdage.Clock
}

// NewKeyFileGenerator creates a generator writing through files.
func NewKeyFileGenerator(crypto mdage.Crypto, files mdage.FileAccess, resolver *mdage.PathResolver, clock mdage.Clock) *KeyFileGenerator {
	return &KeyFileGenerator{crypto: crypto, files: files, resolver: resolver, clock: clock}
}

// Generate writes a new key file at path and returns its recipient.
// It refuses to overwrite an existing file.
func (g *KeyFileGenerator) Generate(path, passphrase string) (string, error) {
	if passphrase == "" {
		return "", fmt.Errorf("%w: key files must be protected by a passphrase", mdage.ErrMissingPassword)
	}

	loc := g.resolver.Resolve(path)
	exists, err := g.files.Exists(loc)
	if err != nil {
		return "", fmt.Errorf("checking key file: %w", err)
	}
	if exists {
		return "", fmt.Errorf("key file already exists: %s", path)
	}

	identity, err := g.crypto.GenerateIdentity()
	if err != nil {
		return "", err
	}
	recipient, err := g.crypto.DeriveRecipient(identity)
	if err != nil {
		return "", err
	}

	var plain bytes.Buffer
	fmt.Fprintf(&plain, "# created: %s\n", g.clock.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&plain, "# public key: %s\n", recipient)
	fmt.Fprintf(&plain, "%s\n", identity)

	data, err := g.crypto.EncryptSymmetric(plain.Bytes(), passphrase)
	if err != nil {
		return "", fmt.Errorf("encrypting key file: %w", err)
	}

	armored, err := armorBytes(data)
	if err != nil {
		return "", err
	}

	if err := g.files.WriteBytes(loc, armored); err != nil {
		return "", fmt.Errorf("writing key file: %w", err)
	}
	return recipient, nil
}

func armorBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := armor.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("armoring key file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing armor: %w", err)
	}
	return buf.Bytes(), nil
}
