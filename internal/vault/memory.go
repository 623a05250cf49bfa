package vault

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	files map[string][]byte
	mu    sync.RWMutex
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{files: make(map[string][]byte)}
}

func memoryKey(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (m *MemoryVault) Exists(p string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[memoryKey(p)]
	return ok, nil
}

func (m *MemoryVault) Read(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[memoryKey(p)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryVault) Write(p string, data []byte) error {
	key := memoryKey(p)
	if key == "" {
		return fmt.Errorf("invalid path: %q", p)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryVault) List(dir string) ([]string, error) {
	prefix := memoryKey(dir)
	if prefix != "" {
		prefix += "/"
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for p := range m.files {
		if strings.HasPrefix(p, prefix) && strings.HasSuffix(p, ".md") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements Vault interface
var _ Vault = (*MemoryVault)(nil)
