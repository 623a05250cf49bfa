package encryption

import (
	"fmt"

	"mdage/internal/config"
	"mdage/internal/mdage"
)

// NewCryptoFromConfig creates a Crypto based on the configuration type.
func NewCryptoFromConfig(cfg config.EncryptionConfig) (mdage.Crypto, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeCrypto(cfg.ScryptWorkFactor), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
