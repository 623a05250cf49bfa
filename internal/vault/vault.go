// Package vault provides the managed storage area that holds notes and
// vault-relative key files. Paths are slash-separated and relative to the
// vault root.
package vault

import "errors"

// ErrNotFound is returned when a path does not exist in the vault.
var ErrNotFound = errors.New("not found")

// Vault is the managed storage area.
type Vault interface {
	// Exists reports whether a file exists at path.
	Exists(path string) (bool, error)

	// Read returns the contents of the file at path.
	Read(path string) ([]byte, error)

	// Write replaces the file at path, creating parent directories.
	// Writes are atomic: readers see the old or the new content.
	Write(path string, data []byte) error

	// List returns the markdown files under dir, sorted.
	List(dir string) ([]string, error)

	// ValidateSetup verifies that the vault is accessible.
	ValidateSetup() error
}
