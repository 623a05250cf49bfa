package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"mdage/internal/mdage"
	"mdage/internal/vault"
)

// KeyFileAccess implements mdage.FileAccess. External locations go to the
// OS filesystem; everything else is read from the vault.
type KeyFileAccess struct {
	vault vault.Vault
}

// NewKeyFileAccess creates a KeyFileAccess backed by v for vault-relative paths.
func NewKeyFileAccess(v vault.Vault) *KeyFileAccess {
	return &KeyFileAccess{vault: v}
}

func (a *KeyFileAccess) Exists(loc mdage.Location) (bool, error) {
	if !loc.External {
		return a.vault.Exists(loc.Path)
	}
	info, err := os.Stat(loc.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat key file: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

func (a *KeyFileAccess) ReadBytes(loc mdage.Location) ([]byte, error) {
	if !loc.External {
		return a.vault.Read(loc.Path)
	}
	data, err := os.ReadFile(loc.Path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	return data, nil
}

// WriteBytes writes a key file. External key files are created with
// owner-only permissions.
func (a *KeyFileAccess) WriteBytes(loc mdage.Location, data []byte) error {
	if !loc.External {
		return a.vault.Write(loc.Path, data)
	}
	if err := os.MkdirAll(filepath.Dir(loc.Path), 0700); err != nil {
		return fmt.Errorf("creating key file directory: %w", err)
	}
	if err := os.WriteFile(loc.Path, data, 0600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

var _ mdage.FileAccess = (*KeyFileAccess)(nil)
