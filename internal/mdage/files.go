package mdage

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Location is a resolved key file path. External locations are absolute
// filesystem paths; all others are relative to the managed vault.
type Location struct {
	Path     string
	External bool
}

func (l Location) String() string { return l.Path }

// FileAccess reads and writes key files. Implementations decide where a
// Location lives based on its External flag.
type FileAccess interface {
	Exists(loc Location) (bool, error)
	ReadBytes(loc Location) ([]byte, error)
	WriteBytes(loc Location, data []byte) error
}

// PathResolver turns configured key file paths into Locations.
// Home shorthand and environment references are expanded textually before
// the path is classified as external or vault-relative.
type PathResolver struct {
	HomeDir   string
	LookupEnv func(key string) (string, bool)
}

// NewPathResolver returns a resolver bound to the process environment.
func NewPathResolver() *PathResolver {
	home, _ := os.UserHomeDir()
	return &PathResolver{HomeDir: home, LookupEnv: os.LookupEnv}
}

// Resolve expands and classifies raw.
func (r *PathResolver) Resolve(raw string) Location {
	expanded := r.expand(strings.TrimSpace(raw))

	if isExternal(expanded) {
		return Location{Path: filepath.Clean(expanded), External: true}
	}
	return Location{Path: path.Clean(filepath.ToSlash(expanded))}
}

func (r *PathResolver) expand(p string) string {
	if r.HomeDir != "" {
		switch {
		case p == "~":
			p = r.HomeDir
		case strings.HasPrefix(p, "~/"), strings.HasPrefix(p, `~\`):
			p = filepath.Join(r.HomeDir, p[2:])
		}
	}

	if r.LookupEnv == nil || !strings.Contains(p, "$") {
		return p
	}
	// Unset variables keep their reference so a typo never turns a relative
	// path into an absolute one.
	return os.Expand(p, func(name string) string {
		if v, ok := r.LookupEnv(name); ok {
			return v
		}
		return "${" + name + "}"
	})
}

func isExternal(p string) bool {
	return filepath.IsAbs(p) || strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`)
}
