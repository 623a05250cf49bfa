package mdage

import "fmt"

// Mode selects how content is encrypted.
type Mode string

const (
	ModePassphrase Mode = "passphrase"
	ModeKeyFiles   Mode = "keyfiles"
	// ModeMixed is only a configuration value: the mode is chosen per
	// operation and never reaches the crypto primitive.
	ModeMixed Mode = "mixed"
)

// ParseMode converts a configuration string into a Mode.
// The empty string is treated as ModePassphrase.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModePassphrase, nil
	case ModePassphrase, ModeKeyFiles, ModeMixed:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Concrete reports whether m can drive an encryption without a prompt.
func (m Mode) Concrete() bool {
	return m == ModePassphrase || m == ModeKeyFiles
}

func (m Mode) String() string { return string(m) }
