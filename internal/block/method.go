package block

import "strings"

// Method tags written into the "method:" line.
const (
	MethodPassphrase = "passphrase"
	MethodKeyFiles   = "keyfiles"
)

// Method is a parsed method tag.
type Method struct {
	// Kind is MethodPassphrase, MethodKeyFiles or empty for legacy blocks.
	Kind     string
	KeyFiles []string
}

// KeyFilesMethod builds the tag for content encrypted to key files.
func KeyFilesMethod(paths []string) string {
	if len(paths) == 0 {
		return MethodKeyFiles
	}
	return MethodKeyFiles + ":" + strings.Join(paths, ",")
}

// ParseMethod splits a method tag. Unknown tags keep their text in Kind.
func ParseMethod(tag string) Method {
	tag = strings.TrimSpace(tag)
	kind, rest, found := strings.Cut(tag, ":")
	if kind != MethodKeyFiles {
		return Method{Kind: tag}
	}

	m := Method{Kind: MethodKeyFiles}
	if !found {
		return m
	}
	for _, p := range strings.Split(rest, ",") {
		if p = strings.TrimSpace(p); p != "" {
			m.KeyFiles = append(m.KeyFiles, p)
		}
	}
	return m
}
