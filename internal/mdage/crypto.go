package mdage

// Credentials are everything handed to a single decryption attempt.
// The primitive tries every credential against the payload.
type Credentials struct {
	Passphrase string
	Identities []string
}

// Empty reports whether c carries no credential at all.
func (c Credentials) Empty() bool {
	return c.Passphrase == "" && len(c.Identities) == 0
}

// Crypto is the external encryption primitive. Implementations produce and
// consume binary age payloads.
type Crypto interface {
	// EncryptSymmetric encrypts plaintext with a passphrase.
	EncryptSymmetric(plaintext []byte, passphrase string) ([]byte, error)

	// EncryptAsymmetric encrypts plaintext to every recipient.
	EncryptAsymmetric(plaintext []byte, recipients []string) ([]byte, error)

	// Decrypt tries all credentials against ciphertext.
	Decrypt(ciphertext []byte, creds Credentials) ([]byte, error)

	// DeriveRecipient returns the public recipient string for an identity.
	DeriveRecipient(identity string) (string, error)

	// GenerateIdentity returns a new secret identity string.
	GenerateIdentity() (string, error)
}
