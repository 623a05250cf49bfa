package app

import (
	"errors"
	"fmt"
	"strings"

	"mdage/internal/mdage"
)

// Keygen creates a passphrase-protected key file at path and returns its
// recipient. The passphrase is asked twice.
func (a *App) Keygen(path string) (string, error) {
	op := a.startOperation(mdage.OpKeygen, path)

	recipient, err := a.keygenFlow(path)
	a.record(op.finish("", 0, err))
	if err != nil {
		return "", err
	}
	a.logger.Info("key file generated", "path", path, "recipient", recipient)
	return recipient, nil
}

func (a *App) keygenFlow(path string) (string, error) {
	pass, err := askNewSecret(a.prompter, fmt.Sprintf("Passphrase for new key file %s: ", path))
	if err != nil {
		return "", err
	}
	return a.keygen.Generate(path, pass)
}

// UnlockKeyFiles prompts for the passphrase of every locked key file among
// paths and unlocks them. Empty paths means every configured key file.
// A dismissed prompt skips that key file; dismissing all of them returns
// ErrCancelled.
func (a *App) UnlockKeyFiles(paths []string) (*mdage.UnlockResult, error) {
	if len(paths) == 0 {
		paths = a.cfg.Encryption.KeyFiles
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no key files configured")
	}

	op := a.startOperation(mdage.OpUnlock, strings.Join(paths, ","))
	res, err := a.unlock(paths)
	unlocked := 0
	if res != nil {
		unlocked = len(res.Unlocked)
	}
	a.record(op.finish("", unlocked, err))
	return res, err
}

func (a *App) unlock(paths []string) (*mdage.UnlockResult, error) {
	var locked []string
	for _, p := range paths {
		if !a.service.KeyFiles().IsUnlocked(p) {
			locked = append(locked, p)
		}
	}
	if len(locked) == 0 {
		return &mdage.UnlockResult{Errors: map[string]error{}}, nil
	}

	passphrases := make(map[string]string, len(locked))
	for _, p := range locked {
		pass, err := askSecret(a.prompter, fmt.Sprintf("Passphrase for key file %s: ", p))
		if errors.Is(err, ErrCancelled) {
			continue
		}
		if err != nil {
			return nil, err
		}
		passphrases[p] = pass
	}
	if len(passphrases) == 0 {
		return nil, ErrCancelled
	}

	return a.service.UnlockKeyFiles(locked, passphrases)
}
