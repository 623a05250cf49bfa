package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSystemVault stores notes as files under a root directory.
// Paths that resolve outside root are rejected.
type FileSystemVault struct {
	root string
}

// NewFileSystemVault creates a vault rooted at the given directory,
// creating it if needed.
func NewFileSystemVault(root string) (*FileSystemVault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving vault root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vault root: %w", err)
	}
	return &FileSystemVault{root: abs}, nil
}

// Root returns the absolute vault root.
func (v *FileSystemVault) Root() string {
	return v.root
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it.
func (v *FileSystemVault) safePath(rel string) (string, error) {
	if rel == "" {
		return v.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("absolute paths not allowed in vault: %s", rel)
	}
	abs := filepath.Join(v.root, cleaned)
	if abs != v.root && !strings.HasPrefix(abs, v.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes vault root: %s", rel)
	}
	return abs, nil
}

func (v *FileSystemVault) Exists(path string) (bool, error) {
	abs, err := v.safePath(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return !info.IsDir(), nil
}

func (v *FileSystemVault) Read(path string) ([]byte, error) {
	abs, err := v.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Write writes data using atomic write (temp file + rename).
func (v *FileSystemVault) Write(path string, data []byte) error {
	destPath, err := v.safePath(path)
	if err != nil {
		return err
	}
	if destPath == v.root {
		return fmt.Errorf("invalid path: %q", path)
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(dir, ".mdage-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// List walks dir and returns every .md file relative to the vault root.
func (v *FileSystemVault) List(dir string) ([]string, error) {
	base, err := v.safePath(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(v.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing vault: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// ValidateSetup verifies that the vault root is an accessible directory.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}
	return nil
}

// Compile-time check that FileSystemVault implements Vault interface
var _ Vault = (*FileSystemVault)(nil)
