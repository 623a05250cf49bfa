package mdage

// EncryptionRequest selects the credentials for one Encrypt call.
// It is either a PassphraseRequest or a KeyFilesRequest.
type EncryptionRequest interface {
	Mode() Mode
	hint() string
}

// PassphraseRequest encrypts with a passphrase. When Remember is set the
// passphrase is cached for the session under the resulting ciphertext.
type PassphraseRequest struct {
	Passphrase string
	Hint       string
	Remember   bool
}

func (PassphraseRequest) Mode() Mode     { return ModePassphrase }
func (r PassphraseRequest) hint() string { return r.Hint }

// KeyFilesRequest encrypts to recipients. Nil slices fall back to the
// configured key files and recipients; an empty non-nil slice means none.
type KeyFilesRequest struct {
	KeyFilePaths []string
	Recipients   []string
	Hint         string
}

func (KeyFilesRequest) Mode() Mode     { return ModeKeyFiles }
func (r KeyFilesRequest) hint() string { return r.Hint }

// DecryptOptions lists explicit credentials for Decrypt. Every credential is
// offered to the primitive at once.
type DecryptOptions struct {
	Passphrase   string
	Identities   []string
	KeyFilePaths []string
	// Remember caches Passphrase for the session after a successful decrypt.
	Remember bool
}
