package mdage

import "fmt"

// ValidationResult reports whether a mode can be used with the current
// configuration. Warnings never make a result invalid.
type ValidationResult struct {
	Valid    bool
	Error    string
	Warnings []string
}

// Validator checks modes against configuration and the key file cache.
// It performs no cryptographic work.
type Validator struct {
	keyFiles *KeyFileCache
}

func NewValidator(keyFiles *KeyFileCache) *Validator {
	return &Validator{keyFiles: keyFiles}
}

// Validate checks whether mode is satisfiable with the given key files and
// recipients.
func (v *Validator) Validate(mode Mode, keyFiles, recipients []string) ValidationResult {
	switch mode {
	case ModePassphrase:
		return ValidationResult{Valid: true}

	case ModeKeyFiles:
		if len(keyFiles) == 0 && len(recipients) == 0 {
			return ValidationResult{
				Error: "key file mode requires at least one configured key file or recipient",
			}
		}
		res := ValidationResult{Valid: true}
		if len(keyFiles) > 0 && !v.anyUnlocked(keyFiles) {
			res.Warnings = append(res.Warnings,
				"no configured key file is unlocked; key file passphrases will be required")
		}
		return res

	case ModeMixed:
		res := ValidationResult{Valid: true}
		if len(keyFiles) == 0 && len(recipients) == 0 {
			res.Warnings = append(res.Warnings,
				"no key files or recipients configured; only passphrase encryption will be offered")
		}
		return res

	default:
		return ValidationResult{Error: fmt.Sprintf("unknown encryption mode %q", mode)}
	}
}

func (v *Validator) anyUnlocked(paths []string) bool {
	for _, p := range paths {
		if v.keyFiles.IsUnlocked(p) {
			return true
		}
	}
	return false
}
