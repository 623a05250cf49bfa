package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"mdage/internal/block"
	"mdage/internal/fs"
	"mdage/internal/mdage"
	"mdage/internal/note"
)

// EncryptOptions overrides configuration for one EncryptNote call.
// Zero values fall back to configuration.
type EncryptOptions struct {
	Mode mdage.Mode
	Hint string
	// Remember caches the passphrase for the session. Nil uses
	// remember_by_default.
	Remember   *bool
	KeyFiles   []string
	Recipients []string
}

// EncryptNoteResult describes a completed EncryptNote.
type EncryptNoteResult struct {
	Mode     mdage.Mode
	Method   string
	Warnings []string
}

// EncryptNote replaces the body of the note at path with one encrypted
// block. Frontmatter stays readable when exclude_frontmatter is set.
func (a *App) EncryptNote(path string, opts EncryptOptions) (*EncryptNoteResult, error) {
	op := a.startOperation(mdage.OpEncrypt, path)
	res, err := a.encryptNote(path, opts)
	method := ""
	if res != nil {
		method = res.Method
	}
	a.record(op.finish(method, boolToInt(err == nil), err))
	return res, err
}

func (a *App) encryptNote(path string, opts EncryptOptions) (*EncryptNoteResult, error) {
	enc := a.cfg.Encryption

	data, err := a.vault.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading note %s: %w", path, err)
	}
	doc := string(data)

	front, body := "", doc
	if enc.ExcludeFrontmatter {
		front, body = note.SplitFrontmatter(doc)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("note %s has nothing to encrypt", path)
	}
	if len(note.FindBlocks(body)) > 0 {
		return nil, fmt.Errorf("note %s already contains encrypted blocks", path)
	}

	mode, err := a.chooseMode(opts.Mode)
	if err != nil {
		return nil, err
	}

	hint := opts.Hint
	if hint == "" {
		hint = enc.DefaultHint
	}

	var req mdage.EncryptionRequest
	switch mode {
	case mdage.ModePassphrase:
		pass, err := askNewSecret(a.prompter, fmt.Sprintf("Passphrase for %s: ", path))
		if err != nil {
			return nil, err
		}
		remember := enc.RememberByDefault
		if opts.Remember != nil {
			remember = *opts.Remember
		}
		req = mdage.PassphraseRequest{Passphrase: pass, Hint: hint, Remember: remember}

	case mdage.ModeKeyFiles:
		paths := opts.KeyFiles
		if paths == nil {
			paths = enc.KeyFiles
		}
		if _, err := a.unlock(paths); err != nil {
			if !errors.Is(err, ErrCancelled) && !errors.Is(err, mdage.ErrAllKeyFilesFailed) {
				return nil, err
			}
			a.logger.Warn("encrypting without unlocked key files", "note", path, "error", err)
		}
		req = mdage.KeyFilesRequest{KeyFilePaths: opts.KeyFiles, Recipients: opts.Recipients, Hint: hint}
	}

	check := a.service.Validate(mode)
	if !check.Valid {
		return nil, fmt.Errorf("%w: %s", mdage.ErrInvalidMode, check.Error)
	}
	for _, w := range check.Warnings {
		a.logger.Warn("mode validation warning", "mode", mode, "warning", w)
	}

	out, err := a.service.Encrypt(strings.TrimSuffix(body, "\n"), req)
	if err != nil {
		return nil, err
	}

	if err := a.vault.Write(path, []byte(front+out.Block+"\n")); err != nil {
		return nil, fmt.Errorf("writing note %s: %w", path, err)
	}

	a.logger.Info("note encrypted", "note", path, "method", out.Method)
	return &EncryptNoteResult{Mode: mode, Method: out.Method, Warnings: check.Warnings}, nil
}

// chooseMode resolves the encryption mode and asks the user when it is mixed.
func (a *App) chooseMode(explicit mdage.Mode) (mdage.Mode, error) {
	if mode, ok := a.service.ResolveMode(explicit); ok {
		return mode, nil
	}
	options := []string{string(mdage.ModePassphrase), string(mdage.ModeKeyFiles)}
	i, err := askChoice(a.prompter, "Encrypt with", options)
	if err != nil {
		return "", err
	}
	mode := mdage.Mode(options[i])

	remember, err := askYesNo(a.prompter, "Use this mode for the rest of the session? [y/N]: ")
	if err != nil {
		return "", err
	}
	if remember {
		a.SetModeOverride(&mode)
		a.logger.Info("session mode remembered", "mode", mode)
	}
	return mode, nil
}

// DecryptNoteResult holds the decrypted document and the method used for
// each block, in order.
type DecryptNoteResult struct {
	Content string
	Methods []string
	Written bool
}

// DecryptNote decrypts every block of the note at path. Cached credentials
// are tried first; the user is asked only for blocks they cannot open.
// With write set the plaintext replaces the note in the vault.
func (a *App) DecryptNote(path string, write bool) (*DecryptNoteResult, error) {
	op := a.startOperation(mdage.OpDecrypt, path)
	res, err := a.decryptNote(path, write)
	var (
		methods []string
		blocks  int
	)
	if res != nil {
		blocks = len(res.Methods)
		for _, m := range res.Methods {
			if !slices.Contains(methods, m) {
				methods = append(methods, m)
			}
		}
	}
	a.record(op.finish(strings.Join(methods, ","), blocks, err))
	return res, err
}

func (a *App) decryptNote(path string, write bool) (*DecryptNoteResult, error) {
	data, err := a.vault.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading note %s: %w", path, err)
	}
	doc := string(data)

	spans := note.FindBlocks(doc)
	if len(spans) == 0 {
		return nil, fmt.Errorf("note %s has no encrypted blocks", path)
	}

	res := &DecryptNoteResult{}
	texts := make([]string, len(spans))
	for i, span := range spans {
		b, err := block.Parse(span.Text(doc))
		if err != nil {
			return nil, fmt.Errorf("block %d of %s: %w", i+1, path, err)
		}
		out, err := a.decryptBlock(b)
		if err != nil {
			return nil, fmt.Errorf("block %d of %s: %w", i+1, path, err)
		}
		texts[i] = out.Plaintext
		res.Methods = append(res.Methods, out.Method)
	}
	res.Content = note.ReplaceAll(doc, spans, texts)

	if write {
		if err := a.vault.Write(path, []byte(res.Content)); err != nil {
			return nil, fmt.Errorf("writing note %s: %w", path, err)
		}
		res.Written = true
		a.logger.Info("note decrypted in place", "note", path, "blocks", len(spans))
	}
	return res, nil
}

// decryptBlock tries the cached credentials, then asks according to the
// block's method tag.
func (a *App) decryptBlock(b *block.Block) (*mdage.DecryptResult, error) {
	method := block.ParseMethod(b.Method)
	candidates := method.KeyFiles
	if len(candidates) == 0 {
		candidates = a.cfg.Encryption.KeyFiles
	}

	out, err := a.service.DecryptIntelligent(b.Content, candidates)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mdage.ErrAutoDecryptionFailed) {
		return nil, err
	}
	a.logger.Debug("cached credentials did not decrypt block", "error", err)

	if method.Kind == block.MethodKeyFiles {
		if len(candidates) == 0 {
			return nil, fmt.Errorf("%w: block names no key files and none are configured", mdage.ErrNoDecryptionMethod)
		}
		if _, err := a.unlock(candidates); err != nil {
			return nil, err
		}
		return a.service.Decrypt(b.Content, mdage.DecryptOptions{KeyFilePaths: candidates})
	}

	prompt := "Passphrase: "
	if b.Hint != "" {
		prompt = fmt.Sprintf("Passphrase (hint: %s): ", b.Hint)
	}
	pass, err := askSecret(a.prompter, prompt)
	if err != nil {
		return nil, err
	}
	return a.service.Decrypt(b.Content, mdage.DecryptOptions{
		Passphrase: pass,
		Remember:   a.cfg.Encryption.RememberByDefault,
	})
}

// ScanEntry describes the encrypted blocks of one note.
type ScanEntry struct {
	Path    string
	Methods []string
	Invalid int
}

// Scan lists every note under dir that contains encrypted blocks. Notes
// matched by the ignore rules are skipped.
func (a *App) Scan(dir string) ([]ScanEntry, error) {
	paths, err := a.vault.List(dir)
	if err != nil {
		return nil, err
	}

	patterns := slices.Clone(a.cfg.Filesystem.Ignore)
	if data, err := a.vault.Read(fs.IgnoreFileName); err == nil {
		patterns = append(patterns, fs.ParseIgnorePatterns(data)...)
	}
	ignore := fs.NewIgnoreMatcher(patterns)

	var entries []ScanEntry
	for _, p := range paths {
		if ignore.Match(p) {
			continue
		}
		data, err := a.vault.Read(p)
		if err != nil {
			a.logger.Warn("scan: read failed", "note", p, "error", err)
			continue
		}
		doc := string(data)
		spans := note.FindBlocks(doc)
		if len(spans) == 0 {
			continue
		}

		entry := ScanEntry{Path: p}
		for _, span := range spans {
			b, err := block.Parse(span.Text(doc))
			if err != nil {
				entry.Invalid++
				continue
			}
			m := b.Method
			if m == "" {
				m = "legacy"
			}
			entry.Methods = append(entry.Methods, m)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Validate reports whether mode can be used now. An empty mode validates
// the configured default.
func (a *App) Validate(mode mdage.Mode) mdage.ValidationResult {
	if mode == "" {
		mode = a.service.Settings().DefaultMode
	}
	return a.service.Validate(mode)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
