package testutil

import (
	"sync"

	"mdage/internal/encryption"
	"mdage/internal/mdage"
)

// FastWorkFactor keeps scrypt cheap in tests. Production uses age's default.
const FastWorkFactor = 10

// NewFastCrypto returns real age encryption with a low scrypt work factor.
func NewFastCrypto() *encryption.AgeCrypto {
	return encryption.NewAgeCrypto(FastWorkFactor)
}

// CountingCrypto wraps a Crypto and counts calls to each primitive.
type CountingCrypto struct {
	mdage.Crypto

	mu       sync.Mutex
	encrypts int
	decrypts int
}

// NewCountingCrypto wraps inner.
func NewCountingCrypto(inner mdage.Crypto) *CountingCrypto {
	return &CountingCrypto{Crypto: inner}
}

func (c *CountingCrypto) EncryptSymmetric(plaintext []byte, passphrase string) ([]byte, error) {
	c.mu.Lock()
	c.encrypts++
	c.mu.Unlock()
	return c.Crypto.EncryptSymmetric(plaintext, passphrase)
}

func (c *CountingCrypto) EncryptAsymmetric(plaintext []byte, recipients []string) ([]byte, error) {
	c.mu.Lock()
	c.encrypts++
	c.mu.Unlock()
	return c.Crypto.EncryptAsymmetric(plaintext, recipients)
}

func (c *CountingCrypto) Decrypt(ciphertext []byte, creds mdage.Credentials) ([]byte, error) {
	c.mu.Lock()
	c.decrypts++
	c.mu.Unlock()
	return c.Crypto.Decrypt(ciphertext, creds)
}

// Encrypts returns the number of encrypt calls so far.
func (c *CountingCrypto) Encrypts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encrypts
}

// Decrypts returns the number of decrypt calls so far.
func (c *CountingCrypto) Decrypts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decrypts
}

var _ mdage.Crypto = (*CountingCrypto)(nil)
