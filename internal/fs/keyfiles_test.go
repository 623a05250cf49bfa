package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mdage/internal/fs"
	"mdage/internal/mdage"
	"mdage/internal/vault"
)

func TestKeyFileAccess_Vault(t *testing.T) {
	t.Parallel()
	v := vault.NewMemoryVault()
	a := fs.NewKeyFileAccess(v)
	loc := mdage.Location{Path: "keys/main.age"}

	exists, err := a.Exists(loc)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Fatal("expected key file to be missing")
	}

	if err := a.WriteBytes(loc, []byte("secret")); err != nil {
		t.Fatalf("WriteBytes() error = %v", err)
	}
	got, err := a.ReadBytes(loc)
	if err != nil {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	if string(got) != "secret" {
		t.Errorf("ReadBytes() = %q, want %q", got, "secret")
	}
	if ok, _ := v.Exists("keys/main.age"); !ok {
		t.Error("expected key file to be stored in the vault")
	}
}

func TestKeyFileAccess_External(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := fs.NewKeyFileAccess(vault.NewMemoryVault())
	loc := mdage.Location{Path: filepath.Join(dir, "nested", "key.age"), External: true}

	if err := a.WriteBytes(loc, []byte("secret")); err != nil {
		t.Fatalf("WriteBytes() error = %v", err)
	}

	info, err := os.Stat(loc.Path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	exists, err := a.Exists(loc)
	if err != nil || !exists {
		t.Fatalf("Exists() = %v, %v; want true, nil", exists, err)
	}
	got, err := a.ReadBytes(loc)
	if err != nil {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	if string(got) != "secret" {
		t.Errorf("ReadBytes() = %q", got)
	}
}

func TestKeyFileAccess_ExternalDirectoryIsNotAKeyFile(t *testing.T) {
	t.Parallel()
	a := fs.NewKeyFileAccess(vault.NewMemoryVault())

	exists, err := a.Exists(mdage.Location{Path: t.TempDir(), External: true})
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("a directory must not count as an existing key file")
	}
}

func TestKeyFileAccess_ReadMissingVaultFile(t *testing.T) {
	t.Parallel()
	a := fs.NewKeyFileAccess(vault.NewMemoryVault())

	_, err := a.ReadBytes(mdage.Location{Path: "missing.age"})
	if !errors.Is(err, vault.ErrNotFound) {
		t.Errorf("ReadBytes() error = %v, want ErrNotFound", err)
	}
}
