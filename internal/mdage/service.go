package mdage

import (
	"fmt"
	"slices"
	"time"

	"mdage/internal/block"
)

// Method tags reported by the decrypt operations.
const (
	MethodCachedPassword = "cached_password"
	MethodPassphrase     = "passphrase"
)

// CachedKeyFilesMethod is the tag for a decrypt that used n cached identities.
func CachedKeyFilesMethod(n int) string {
	return fmt.Sprintf("cached_keyfiles(%d)", n)
}

// Settings is the read-only configuration the service consults.
type Settings struct {
	KeyFiles    []string
	Recipients  []string
	DefaultMode Mode
	// KeyFileTTL bounds how long unlocked identities stay cached.
	// Zero disables expiry.
	KeyFileTTL time.Duration
}

// EncryptResult is the output of a successful Encrypt.
type EncryptResult struct {
	Block      string
	Ciphertext string
	Method     string
}

// DecryptResult is the output of a successful decrypt.
type DecryptResult struct {
	Plaintext string
	Method    string
}

// UnlockResult lists the key files unlocked by UnlockKeyFiles and the
// per-path failures of the rest.
type UnlockResult struct {
	Unlocked []string
	Errors   map[string]error
}

// Service decides which credentials reach the crypto primitive. It owns the
// session caches for its lifetime.
type Service struct {
	crypto    Crypto
	keyFiles  *KeyFileCache
	session   *SessionCache
	validator *Validator
	settings  Settings
	logger    Logger
}

// NewService creates a Service around the given caches.
func NewService(crypto Crypto, keyFiles *KeyFileCache, session *SessionCache, settings Settings, logger Logger) *Service {
	return &Service{
		crypto:    crypto,
		keyFiles:  keyFiles,
		session:   session,
		validator: NewValidator(keyFiles),
		settings:  settings,
		logger:    logger,
	}
}

func (s *Service) KeyFiles() *KeyFileCache { return s.keyFiles }
func (s *Service) Session() *SessionCache  { return s.session }
func (s *Service) Settings() Settings      { return s.settings }

// ResolveMode picks the mode for an encryption: explicit, then the session
// override, then the configured default. It returns false when the result is
// mixed and the caller has to ask. A mixed override asks even when the
// default is concrete.
func (s *Service) ResolveMode(explicit Mode) (Mode, bool) {
	if explicit != "" {
		return explicit, explicit.Concrete()
	}
	if m, ok := s.session.ModeOverride(); ok {
		return m, m.Concrete()
	}
	if s.settings.DefaultMode.Concrete() {
		return s.settings.DefaultMode, true
	}
	return ModeMixed, false
}

// Validate checks mode against the configured key files and recipients.
func (s *Service) Validate(mode Mode) ValidationResult {
	return s.validator.Validate(mode, s.settings.KeyFiles, s.settings.Recipients)
}

// Encrypt encrypts plaintext as requested and formats the result as a block.
// Nothing in the session changes unless encryption succeeds.
func (s *Service) Encrypt(plaintext string, req EncryptionRequest) (*EncryptResult, error) {
	var (
		data   []byte
		method string
		err    error
	)

	switch r := req.(type) {
	case PassphraseRequest:
		if r.Passphrase == "" {
			return nil, newError(ErrMissingPassword, nil, "a passphrase is required for passphrase encryption")
		}
		data, err = s.crypto.EncryptSymmetric([]byte(plaintext), r.Passphrase)
		method = block.MethodPassphrase

	case KeyFilesRequest:
		paths := r.KeyFilePaths
		if paths == nil {
			paths = s.settings.KeyFiles
		}
		recipients := s.collectRecipients(paths, r.Recipients)
		if len(recipients) == 0 {
			return nil, newError(ErrNoRecipients, nil,
				"no recipients available: configure a recipient or unlock a key file")
		}
		data, err = s.crypto.EncryptAsymmetric([]byte(plaintext), recipients)
		method = block.KeyFilesMethod(paths)

	default:
		return nil, fmt.Errorf("%w: unsupported request %T", ErrInvalidMode, req)
	}

	if err != nil {
		s.logger.Error("encryption failed", "mode", req.Mode(), "error", err)
		return nil, newError(ErrEncryptionFailed, err, "encryption failed")
	}

	ciphertext := block.WrapBase64(data)
	if r, ok := req.(PassphraseRequest); ok && r.Remember {
		s.session.Remember(ciphertext, r.Passphrase)
	}

	s.logger.Info("content encrypted", "mode", req.Mode(), "method", method, "bytes", len(data))
	return &EncryptResult{
		Block:      block.Format(ciphertext, req.hint(), method),
		Ciphertext: ciphertext,
		Method:     method,
	}, nil
}

// collectRecipients merges direct recipients with those of unlocked key
// files. Direct recipients default to the configured list when nil.
func (s *Service) collectRecipients(paths, direct []string) []string {
	if direct == nil {
		direct = s.settings.Recipients
	}

	var recipients []string
	add := func(r string) {
		if r != "" && !slices.Contains(recipients, r) {
			recipients = append(recipients, r)
		}
	}
	for _, r := range direct {
		add(r)
	}
	for _, p := range paths {
		e, ok := s.keyFiles.Lookup(p)
		if !ok {
			s.logger.Debug("key file locked, not used as recipient", "path", p)
			continue
		}
		add(e.Recipient)
	}
	return recipients
}

// DecryptIntelligent tries the cached credentials in order: the session
// passphrase for this ciphertext, then every unlocked identity among
// candidateKeyFiles. A failing source is recorded and the next one tried.
// When all fail the returned *AutoDecryptError lists the attempts and the
// caller should ask the user for credentials.
func (s *Service) DecryptIntelligent(ciphertext string, candidateKeyFiles []string) (*DecryptResult, error) {
	data, err := block.UnwrapBase64(ciphertext)
	if err != nil {
		return nil, err
	}

	var attempts []Attempt

	if pass, ok := s.session.Get(ciphertext); ok {
		plaintext, err := s.crypto.Decrypt(data, Credentials{Passphrase: pass})
		if err == nil {
			s.logger.Debug("decrypted with cached passphrase")
			return &DecryptResult{Plaintext: string(plaintext), Method: MethodCachedPassword}, nil
		}
		s.logger.Warn("cached passphrase did not decrypt content", "error", err)
		attempts = append(attempts, Attempt{Method: MethodCachedPassword, Err: err})
	}

	identities := s.cachedIdentities(candidateKeyFiles)
	if len(identities) > 0 {
		method := CachedKeyFilesMethod(len(identities))
		plaintext, err := s.crypto.Decrypt(data, Credentials{Identities: identities})
		if err == nil {
			s.logger.Debug("decrypted with cached identities", "count", len(identities))
			return &DecryptResult{Plaintext: string(plaintext), Method: method}, nil
		}
		attempts = append(attempts, Attempt{Method: method, Err: err})
	}

	return nil, &AutoDecryptError{Attempts: attempts}
}

// Decrypt decrypts with every credential in opts at once. It fails with
// ErrNoDecryptionMethod before calling the primitive if opts yields none.
func (s *Service) Decrypt(ciphertext string, opts DecryptOptions) (*DecryptResult, error) {
	creds := Credentials{
		Passphrase: opts.Passphrase,
		Identities: append(slices.Clone(opts.Identities), s.cachedIdentities(opts.KeyFilePaths)...),
	}
	if creds.Empty() {
		return nil, newError(ErrNoDecryptionMethod, nil, "no decryption method provided")
	}

	data, err := block.UnwrapBase64(ciphertext)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.crypto.Decrypt(data, creds)
	if err != nil {
		return nil, newError(ErrDecryptionFailed, err, "decryption failed")
	}

	if opts.Remember && opts.Passphrase != "" {
		s.session.Remember(ciphertext, opts.Passphrase)
	}

	return &DecryptResult{Plaintext: string(plaintext), Method: describeCredentials(creds)}, nil
}

func describeCredentials(c Credentials) string {
	switch {
	case c.Passphrase != "" && len(c.Identities) > 0:
		return fmt.Sprintf("passphrase+identities(%d)", len(c.Identities))
	case c.Passphrase != "":
		return MethodPassphrase
	default:
		return fmt.Sprintf("identities(%d)", len(c.Identities))
	}
}

func (s *Service) cachedIdentities(paths []string) []string {
	var ids []string
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if e, ok := s.keyFiles.Lookup(p); ok {
			ids = append(ids, e.Identity)
		}
	}
	return ids
}

// UnlockKeyFiles unlocks each path with its passphrase, continuing past
// failures. It returns an *UnlockError only if every path failed.
func (s *Service) UnlockKeyFiles(paths []string, passphrases map[string]string) (*UnlockResult, error) {
	res := &UnlockResult{Errors: make(map[string]error)}

	for _, p := range paths {
		pass := passphrases[p]
		if pass == "" {
			res.Errors[p] = newError(ErrMissingPassphrase, nil, "no passphrase supplied for key file %s", p)
			continue
		}
		if _, err := s.keyFiles.Unlock(p, pass); err != nil {
			s.logger.Warn("key file unlock failed", "path", p, "error", err)
			res.Errors[p] = err
			continue
		}
		res.Unlocked = append(res.Unlocked, p)
	}

	if len(paths) > 0 && len(res.Unlocked) == 0 {
		return nil, &UnlockError{Errors: res.Errors}
	}
	return res, nil
}

// ExpireKeyFiles applies the configured TTL to the key file cache.
func (s *Service) ExpireKeyFiles() int {
	if s.settings.KeyFileTTL <= 0 {
		return 0
	}
	return s.keyFiles.ExpireOlderThan(s.settings.KeyFileTTL)
}

// ClearSession drops every cached identity, passphrase and the mode override.
func (s *Service) ClearSession() {
	s.keyFiles.Clear()
	s.session.ForgetAll()
	s.logger.Info("session cleared")
}
