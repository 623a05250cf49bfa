package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"mdage/internal/config"
	"mdage/internal/database"
	"mdage/internal/encryption"
	"mdage/internal/fs"
	"mdage/internal/mdage"
	"mdage/internal/vault"
)

// App is the application layer between the CLI and mdage.Service.
// It constructs all dependencies from config, runs note-level flows that
// prompt for credentials, and owns the session caches for its lifetime.
type App struct {
	cfg      *config.Config
	vault    vault.Vault
	service  *mdage.Service
	keygen   *encryption.KeyFileGenerator
	history  mdage.History
	prompter Prompter
	logger   mdage.Logger
	clock    mdage.Clock
	ids      mdage.IDGenerator

	sessionID string
	logFile   *os.File
}

// Option is a functional option for configuring the App.
type Option func(*App)

// WithPrompter sets where credentials are asked for. The default reads
// from the terminal.
func WithPrompter(p Prompter) Option {
	return func(a *App) { a.prompter = p }
}

// WithClock replaces the wall clock used for key file expiry and history.
func WithClock(c mdage.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithIDGenerator replaces the generator for session and operation IDs.
func WithIDGenerator(g mdage.IDGenerator) Option {
	return func(a *App) { a.ids = g }
}

// WithLogger replaces the file logger.
func WithLogger(l mdage.Logger) Option {
	return func(a *App) { a.logger = l }
}

// NewApp creates a fully wired App from the given config.
// The caller must call Close when done.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:   cfg,
		clock: mdage.RealClock{},
		ids:   mdage.UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.prompter == nil {
		a.prompter = NewTerminalPrompter(os.Stdin, os.Stderr)
	}
	a.sessionID = a.ids.New()

	if a.logger == nil {
		logger, logFile, err := newLogger(cfg.LogDir, cfg.LogLevel, a.sessionID)
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
		a.logger = &slogAdapter{l: logger}
		a.logFile = logFile
	}

	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}

	a.logger.Info("session started", "vault", cfg.Vault.Type, "default_mode", cfg.Encryption.DefaultMode)
	return a, nil
}

func (a *App) wire() error {
	enc := a.cfg.Encryption

	defaultMode, err := mdage.ParseMode(enc.DefaultMode)
	if err != nil {
		return fmt.Errorf("default mode: %w", err)
	}

	v, err := vault.NewVaultFromConfig(a.cfg.Vault)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(); err != nil {
		return fmt.Errorf("vault setup: %w", err)
	}

	crypto, err := encryption.NewCryptoFromConfig(enc)
	if err != nil {
		return fmt.Errorf("creating crypto: %w", err)
	}

	history, err := database.NewHistoryFromConfig(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("creating history database: %w", err)
	}

	files := fs.NewKeyFileAccess(v)
	resolver := mdage.NewPathResolver()
	cache := mdage.NewKeyFileCache(crypto, files, resolver, a.clock, a.logger)
	settings := mdage.Settings{
		KeyFiles:    enc.KeyFiles,
		Recipients:  enc.Recipients,
		DefaultMode: defaultMode,
		KeyFileTTL:  enc.KeyFileTTL.Duration,
	}

	a.vault = v
	a.history = history
	a.service = mdage.NewService(crypto, cache, mdage.NewSessionCache(), settings, a.logger)
	a.keygen = encryption.NewKeyFileGenerator(crypto, files, resolver, a.clock)
	return nil
}

func (a *App) Config() *config.Config  { return a.cfg }
func (a *App) Vault() vault.Vault      { return a.vault }
func (a *App) Service() *mdage.Service { return a.service }
func (a *App) SessionID() string       { return a.sessionID }
func (a *App) Logger() mdage.Logger    { return a.logger }
func (a *App) Prompter() Prompter      { return a.prompter }
func (a *App) History() mdage.History  { return a.history }

func (a *App) startOperation(kind, note string) *noteOperation {
	return newNoteOperation(kind, note, a.sessionID, a.clock, a.ids)
}

// record stores op. A history failure never fails the operation itself.
func (a *App) record(op mdage.Operation) {
	if a.history == nil {
		return
	}
	if err := a.history.Record(context.Background(), op); err != nil {
		a.logger.Warn("recording operation failed", "kind", op.Kind, "error", err)
	}
}

// RecentOperations returns up to limit recorded operations, newest first.
func (a *App) RecentOperations(limit int) ([]mdage.Operation, error) {
	return a.history.Recent(context.Background(), limit)
}

// Status is a snapshot of the session caches.
type Status struct {
	SessionID             string
	UnlockedKeyFiles      []string
	LockedKeyFiles        []string
	RememberedPassphrases int
	ModeOverride          mdage.Mode
	DefaultMode           mdage.Mode
	KeyFileTTL            time.Duration
}

// Status reports what the session currently holds. It never exposes secrets.
func (a *App) Status() Status {
	st := Status{
		SessionID:             a.sessionID,
		UnlockedKeyFiles:      a.service.KeyFiles().Paths(),
		RememberedPassphrases: a.service.Session().Len(),
		DefaultMode:           a.service.Settings().DefaultMode,
		KeyFileTTL:            a.service.Settings().KeyFileTTL,
	}
	if m, ok := a.service.Session().ModeOverride(); ok {
		st.ModeOverride = m
	}
	for _, p := range a.service.Settings().KeyFiles {
		if !a.service.KeyFiles().IsUnlocked(p) {
			st.LockedKeyFiles = append(st.LockedKeyFiles, p)
		}
	}
	return st
}

// SetModeOverride sets the session mode, or clears it with nil.
func (a *App) SetModeOverride(m *mdage.Mode) {
	a.service.Session().SetModeOverride(m)
}

// Lock forgets every unlocked key file but keeps remembered passphrases.
func (a *App) Lock() {
	a.service.KeyFiles().Clear()
	a.logger.Info("key files locked")
}

// ClearSession drops all cached credentials and the mode override.
func (a *App) ClearSession() {
	a.service.ClearSession()
}

// Close drops cached credentials and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.service != nil {
		a.service.ClearSession()
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			firstErr = fmt.Errorf("closing history database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
