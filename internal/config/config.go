package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Encryption modes accepted in default_mode.
const (
	ModePassphrase = "passphrase"
	ModeKeyFiles   = "keyfiles"
	ModeMixed      = "mixed"
)

// Config represents the main configuration for mdage.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn", "error"
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// EncryptionConfig holds key files, recipients and per-operation defaults.
type EncryptionConfig struct {
	Type               string   `toml:"type"` // "age" (default)
	KeyFiles           []string `toml:"key_files"`
	Recipients         []string `toml:"recipients"`
	DefaultMode        string   `toml:"default_mode"` // "passphrase", "keyfiles" or "mixed"
	DefaultHint        string   `toml:"default_hint"`
	RememberByDefault  bool     `toml:"remember_by_default"`
	ExcludeFrontmatter bool     `toml:"exclude_frontmatter"`
	KeyFileTTL         Duration `toml:"key_file_ttl"`       // zero keeps key files unlocked for the whole session
	ScryptWorkFactor   int      `toml:"scrypt_work_factor"` // zero uses the age default
}

// VaultConfig represents the note vault that vault-relative paths refer to.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"`           // "filesystem" or "memory"
	Root string `toml:"root,omitempty"` // only used for type=filesystem
}

// DatabaseConfig represents configuration for the operation history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// Duration is a time.Duration written as a Go duration string ("15m").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir, vaultRoot string) *Config {
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Vault:    VaultConfig{Type: "filesystem", Root: vaultRoot},
		Encryption: EncryptionConfig{
			Type:               "age",
			DefaultMode:        ModeMixed,
			ExcludeFrontmatter: true,
			KeyFileTTL:         Duration{30 * time.Minute},
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In("", "debug", "info", "warn", "error")),
	); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if err := c.Encryption.Validate(); err != nil {
		return fmt.Errorf("encryption: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Type, validation.Required, validation.In("filesystem", "memory")),
		validation.Field(&c.Root, validation.When(c.Type == "filesystem", validation.Required)),
	)
}

// Validate validates the encryption configuration.
func (c *EncryptionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Type, validation.In("", "age")),
		validation.Field(&c.DefaultMode, validation.In("", ModePassphrase, ModeKeyFiles, ModeMixed)),
		validation.Field(&c.KeyFiles, validation.Each(validation.Required)),
		validation.Field(&c.Recipients, validation.Each(validation.Required)),
		validation.Field(&c.ScryptWorkFactor, validation.Min(0), validation.Max(22)),
		validation.Field(&c.KeyFileTTL, validation.By(func(any) error {
			if c.KeyFileTTL.Duration < 0 {
				return fmt.Errorf("must not be negative")
			}
			return nil
		})),
	)
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Type, validation.Required, validation.In("sqlite", "memory")),
		validation.Field(&c.DataDir, validation.When(c.Type == "sqlite", validation.Required)),
	)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
