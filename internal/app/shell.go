package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"mdage/internal/fs"
	"mdage/internal/mdage"
	"mdage/internal/vault"
)

// DefaultExpiryInterval is how often the shell applies the key file TTL.
const DefaultExpiryInterval = 30 * time.Second

// Shell is a line-oriented session that keeps the credential caches alive
// between commands.
type Shell struct {
	app            *App
	out            io.Writer
	expiryInterval time.Duration
}

// NewShell creates a shell writing its output to out.
func NewShell(a *App, out io.Writer) *Shell {
	return &Shell{app: a, out: out, expiryInterval: DefaultExpiryInterval}
}

// SetExpiryInterval changes how often expired key files are evicted.
func (s *Shell) SetExpiryInterval(d time.Duration) {
	s.expiryInterval = d
}

// Run reads commands until quit, end of input or ctx cancellation. Key file
// expiry and the key file watcher run alongside the command loop.
func (s *Shell) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	loopCtx, stop := context.WithCancel(gCtx)
	defer stop()

	g.Go(func() error {
		s.expireLoop(loopCtx)
		return nil
	})

	watcher := s.newWatcher()
	g.Go(func() error {
		if err := watcher.Run(loopCtx); err != nil {
			s.app.logger.Warn("key file watcher stopped", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		defer stop()
		return s.readLoop(loopCtx)
	})

	return g.Wait()
}

func (s *Shell) newWatcher() *fs.KeyFileWatcher {
	root := ""
	if fsv, ok := s.app.vault.(*vault.FileSystemVault); ok {
		root = fsv.Root()
	}
	return fs.NewKeyFileWatcher(s.app.service.KeyFiles(), s.app.cfg.Encryption.KeyFiles, root, s.app.logger,
		func(path string) {
			fmt.Fprintf(s.out, "key file %s changed and was locked\n", path)
		})
}

func (s *Shell) expireLoop(ctx context.Context) {
	if s.app.service.Settings().KeyFileTTL <= 0 {
		return
	}
	ticker := time.NewTicker(s.expiryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.app.service.ExpireKeyFiles(); n > 0 {
				s.app.logger.Info("key files expired", "count", n)
			}
		}
	}
}

func (s *Shell) readLoop(ctx context.Context) error {
	fmt.Fprintln(s.out, "mdage shell. Type help for commands.")
	for {
		line, err := s.readLine(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := s.Exec(line)
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				fmt.Fprintln(s.out, "cancelled")
			} else {
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
		}
		if quit {
			return nil
		}
	}
}

// readLine waits for the next command line or ctx cancellation. A read
// abandoned by cancellation finishes in the background.
func (s *Shell) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := s.app.prompter.ReadLine("mdage> ")
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

// Exec runs one command line. It reports whether the shell should exit.
func (s *Shell) Exec(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		s.help()
	case "unlock":
		return false, s.unlock(args)
	case "lock":
		s.app.Lock()
		fmt.Fprintln(s.out, "key files locked")
	case "clear":
		s.app.ClearSession()
		fmt.Fprintln(s.out, "session cleared")
	case "mode":
		return false, s.mode(args)
	case "encrypt":
		return false, s.encrypt(args)
	case "decrypt":
		return false, s.decrypt(args)
	case "scan":
		return false, s.scan(args)
	case "validate":
		return false, s.validate(args)
	case "status":
		s.status()
	case "history":
		return false, s.history(args)
	default:
		return false, fmt.Errorf("unknown command %q", cmd)
	}
	return false, nil
}

func (s *Shell) help() {
	fmt.Fprint(s.out, `commands:
  unlock [keyfile...]          unlock configured or named key files
  lock                         forget unlocked key files
  mode [passphrase|keyfiles|mixed|default]
                               show or override the encryption mode
  encrypt <note> [mode]        encrypt a note
  decrypt <note> [--write]     decrypt a note, printing or writing the result
  scan [dir]                   list notes with encrypted blocks
  validate [mode]              check a mode against the configuration
  status                       show cached credentials
  history [n]                  show recent operations
  clear                        forget all cached credentials
  quit                         leave the shell
`)
}

func (s *Shell) unlock(args []string) error {
	res, err := s.app.UnlockKeyFiles(args)
	if err != nil {
		return err
	}
	for _, p := range res.Unlocked {
		fmt.Fprintf(s.out, "unlocked %s\n", p)
	}
	failed := make([]string, 0, len(res.Errors))
	for p := range res.Errors {
		failed = append(failed, p)
	}
	sort.Strings(failed)
	for _, p := range failed {
		fmt.Fprintf(s.out, "failed %s: %v\n", p, res.Errors[p])
	}
	if len(res.Unlocked) == 0 && len(res.Errors) == 0 {
		fmt.Fprintln(s.out, "all key files already unlocked")
	}
	return nil
}

func (s *Shell) mode(args []string) error {
	if len(args) == 0 {
		st := s.app.Status()
		if st.ModeOverride != "" {
			fmt.Fprintf(s.out, "mode: %s (session override, default %s)\n", st.ModeOverride, st.DefaultMode)
		} else {
			fmt.Fprintf(s.out, "mode: %s (default)\n", st.DefaultMode)
		}
		return nil
	}
	if args[0] == "default" {
		s.app.SetModeOverride(nil)
		fmt.Fprintln(s.out, "mode override cleared")
		return nil
	}
	m, err := mdage.ParseMode(args[0])
	if err != nil {
		return err
	}
	s.app.SetModeOverride(&m)
	fmt.Fprintf(s.out, "mode set to %s for this session\n", m)
	return nil
}

func (s *Shell) encrypt(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: encrypt <note> [mode]")
	}
	var opts EncryptOptions
	if len(args) > 1 {
		m, err := mdage.ParseMode(args[1])
		if err != nil {
			return err
		}
		opts.Mode = m
	}
	res, err := s.app.EncryptNote(args[0], opts)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(s.out, "warning: %s\n", w)
	}
	fmt.Fprintf(s.out, "encrypted %s (%s)\n", args[0], res.Method)
	return nil
}

func (s *Shell) decrypt(args []string) error {
	var (
		path  string
		write bool
	)
	for _, a := range args {
		if a == "--write" {
			write = true
		} else {
			path = a
		}
	}
	if path == "" {
		return fmt.Errorf("usage: decrypt <note> [--write]")
	}
	res, err := s.app.DecryptNote(path, write)
	if err != nil {
		return err
	}
	if res.Written {
		fmt.Fprintf(s.out, "decrypted %s (%s)\n", path, strings.Join(res.Methods, ", "))
		return nil
	}
	fmt.Fprintln(s.out, res.Content)
	return nil
}

func (s *Shell) scan(args []string) error {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}
	entries, err := s.app.Scan(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(s.out, "%s\t%s", e.Path, strings.Join(e.Methods, ", "))
		if e.Invalid > 0 {
			fmt.Fprintf(s.out, "\t(%d invalid)", e.Invalid)
		}
		fmt.Fprintln(s.out)
	}
	fmt.Fprintf(s.out, "%d notes with encrypted blocks\n", len(entries))
	return nil
}

func (s *Shell) validate(args []string) error {
	var mode mdage.Mode
	if len(args) > 0 {
		m, err := mdage.ParseMode(args[0])
		if err != nil {
			return err
		}
		mode = m
	}
	PrintValidation(s.out, s.app.Validate(mode))
	return nil
}

// PrintValidation writes a validation result in the shell and CLI format.
func PrintValidation(w io.Writer, res mdage.ValidationResult) {
	if res.Valid {
		fmt.Fprintln(w, "valid")
	} else {
		fmt.Fprintf(w, "invalid: %s\n", res.Error)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func (s *Shell) status() {
	PrintStatus(s.out, s.app.Status())
}

// PrintStatus writes a session status report.
func PrintStatus(w io.Writer, st Status) {
	fmt.Fprintf(w, "session:     %s\n", st.SessionID)
	mode := string(st.DefaultMode)
	if st.ModeOverride != "" {
		mode = fmt.Sprintf("%s (override)", st.ModeOverride)
	}
	fmt.Fprintf(w, "mode:        %s\n", mode)
	fmt.Fprintf(w, "unlocked:    %s\n", listOrNone(st.UnlockedKeyFiles))
	fmt.Fprintf(w, "locked:      %s\n", listOrNone(st.LockedKeyFiles))
	fmt.Fprintf(w, "passphrases: %d remembered\n", st.RememberedPassphrases)
	if st.KeyFileTTL > 0 {
		fmt.Fprintf(w, "key file ttl: %s\n", st.KeyFileTTL)
	}
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func (s *Shell) history(args []string) error {
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid history limit %q", args[0])
		}
		limit = n
	}
	ops, err := s.app.RecentOperations(limit)
	if err != nil {
		return err
	}
	PrintHistory(s.out, ops)
	return nil
}

// PrintHistory writes one line per operation, newest first.
func PrintHistory(w io.Writer, ops []mdage.Operation) {
	for _, op := range ops {
		fmt.Fprintf(w, "%s\t%-8s\t%-9s\t%s", op.StartedAt.Format(time.RFC3339), op.Kind, op.Status, op.Note)
		if op.Method != "" {
			fmt.Fprintf(w, "\t%s", op.Method)
		}
		if op.Error != "" {
			fmt.Fprintf(w, "\t%s", op.Error)
		}
		fmt.Fprintln(w)
	}
}
