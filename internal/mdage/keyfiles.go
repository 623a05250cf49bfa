package mdage

import (
	"bufio"
	"bytes"
	"sort"
	"strings"
	"sync"
	"time"
)

// IdentityPrefix starts every age secret key line, X25519 and hybrid alike.
const IdentityPrefix = "AGE-SECRET-KEY-"

// DecryptedIdentity is an unlocked identity held for the session.
// It is never written to durable storage.
type DecryptedIdentity struct {
	KeyFilePath string
	Identity    string
	Recipient   string
	DecryptedAt time.Time
}

// KeyFileCache holds unlocked identities keyed by the configured key file
// path. It is the source of truth for whether a key file is unlocked.
type KeyFileCache struct {
	mu       sync.Mutex
	entries  map[string]DecryptedIdentity
	crypto   Crypto
	files    FileAccess
	resolver *PathResolver
	clock    Clock
	logger   Logger
}

// NewKeyFileCache creates an empty cache.
func NewKeyFileCache(crypto Crypto, files FileAccess, resolver *PathResolver, clock Clock, logger Logger) *KeyFileCache {
	return &KeyFileCache{
		entries:  make(map[string]DecryptedIdentity),
		crypto:   crypto,
		files:    files,
		resolver: resolver,
		clock:    clock,
		logger:   logger,
	}
}

// Unlock reads the key file at path, decrypts it with passphrase and caches
// its identity. It returns every identity found in the file. When a file
// holds several identities only the last one stays cached under path.
func (c *KeyFileCache) Unlock(path, passphrase string) ([]string, error) {
	loc := c.resolver.Resolve(path)

	exists, err := c.files.Exists(loc)
	if err != nil {
		return nil, newError(ErrKeyFileRead, err, "checking key file %s", path)
	}
	if !exists {
		return nil, newError(ErrKeyFileRead, nil, "key file not found: %s", path)
	}

	data, err := c.files.ReadBytes(loc)
	if err != nil {
		return nil, newError(ErrKeyFileRead, err, "reading key file %s", path)
	}

	plaintext, err := c.crypto.Decrypt(data, Credentials{Passphrase: passphrase})
	if err != nil {
		return nil, newError(ErrDecryptionFailed, err, "decrypting key file %s", path)
	}

	identities := ParseIdentityLines(plaintext)
	if len(identities) == 0 {
		return nil, newError(ErrNoIdentitiesFound, nil, "no identities found in key file %s", path)
	}

	// Derive everything before touching the cache so a bad line leaves it unchanged.
	now := c.clock.Now()
	entries := make([]DecryptedIdentity, 0, len(identities))
	for _, id := range identities {
		recipient, err := c.crypto.DeriveRecipient(id)
		if err != nil {
			return nil, newError(ErrNoIdentitiesFound, err, "invalid identity in key file %s", path)
		}
		entries = append(entries, DecryptedIdentity{
			KeyFilePath: path,
			Identity:    id,
			Recipient:   recipient,
			DecryptedAt: now,
		})
	}

	c.mu.Lock()
	for _, e := range entries {
		c.entries[path] = e
	}
	c.mu.Unlock()

	c.logger.Info("key file unlocked", "path", path, "identities", len(identities), "external", loc.External)
	return identities, nil
}

// Lookup returns the cached identity for path without touching storage.
func (c *KeyFileCache) Lookup(path string) (DecryptedIdentity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	return e, ok
}

// IsUnlocked reports whether path has a cached identity.
func (c *KeyFileCache) IsUnlocked(path string) bool {
	_, ok := c.Lookup(path)
	return ok
}

// ExpireOlderThan drops entries decrypted before now-maxAge and returns how
// many were removed.
func (c *KeyFileCache) ExpireOlderThan(maxAge time.Duration) int {
	cutoff := c.clock.Now().Add(-maxAge)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for path, e := range c.entries {
		if e.DecryptedAt.Before(cutoff) {
			delete(c.entries, path)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("expired key files", "count", removed)
	}
	return removed
}

// Forget drops a single entry. It reports whether one existed.
func (c *KeyFileCache) Forget(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[path]
	delete(c.entries, path)
	return ok
}

// Clear drops all entries.
func (c *KeyFileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]DecryptedIdentity)
}

// Paths returns the unlocked key file paths, sorted.
func (c *KeyFileCache) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Resolve exposes the cache's path resolution for collaborators that need
// the same view of a key file path, such as the file watcher.
func (c *KeyFileCache) Resolve(path string) Location {
	return c.resolver.Resolve(path)
}

// ParseIdentityLines extracts secret key lines from a decrypted key file.
// Blank lines and # comments are skipped.
func ParseIdentityLines(data []byte) []string {
	var identities []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, IdentityPrefix) {
			identities = append(identities, line)
		}
	}
	return identities
}
