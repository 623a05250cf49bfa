package testutil

import (
	"testing"

	"mdage/internal/encryption"
	"mdage/internal/fs"
	"mdage/internal/mdage"
	"mdage/internal/vault"
)

// Env bundles a Service with the collaborators tests poke at directly.
type Env struct {
	Service  *mdage.Service
	Crypto   *CountingCrypto
	Vault    *vault.MemoryVault
	Files    *fs.KeyFileAccess
	Resolver *mdage.PathResolver
	Clock    *StubClock
}

// NewEnv builds a Service over an in-memory vault with fast crypto, a fixed
// clock and a resolver that ignores the process environment.
func NewEnv(t *testing.T, settings mdage.Settings) *Env {
	t.Helper()

	v := vault.NewMemoryVault()
	files := fs.NewKeyFileAccess(v)
	resolver := &mdage.PathResolver{
		HomeDir:   t.TempDir(),
		LookupEnv: func(string) (string, bool) { return "", false },
	}
	clock := FixedClock()
	crypto := NewCountingCrypto(NewFastCrypto())
	logger := mdage.NewNopLogger()

	cache := mdage.NewKeyFileCache(crypto, files, resolver, clock, logger)
	svc := mdage.NewService(crypto, cache, mdage.NewSessionCache(), settings, logger)

	return &Env{
		Service:  svc,
		Crypto:   crypto,
		Vault:    v,
		Files:    files,
		Resolver: resolver,
		Clock:    clock,
	}
}

// WriteKeyFile creates a passphrase-protected key file at path and returns
// its recipient. The write is not counted by the env's CountingCrypto.
func (e *Env) WriteKeyFile(t *testing.T, path, passphrase string) string {
	t.Helper()
	return WriteKeyFile(t, e.Files, e.Resolver, e.Clock, path, passphrase)
}

// WriteKeyFile creates a passphrase-protected key file through files.
func WriteKeyFile(t *testing.T, files mdage.FileAccess, resolver *mdage.PathResolver, clock mdage.Clock, path, passphrase string) string {
	t.Helper()
	gen := encryption.NewKeyFileGenerator(NewFastCrypto(), files, resolver, clock)
	recipient, err := gen.Generate(path, passphrase)
	if err != nil {
		t.Fatalf("generating key file %s: %v", path, err)
	}
	return recipient
}
