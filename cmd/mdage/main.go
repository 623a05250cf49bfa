package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"mdage/internal/app"
	"mdage/internal/config"
	"mdage/internal/mdage"
	"mdage/internal/vault"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configPath string
	warn       = color.New(color.FgYellow)
)

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if errors.Is(err, app.ErrCancelled) {
		fmt.Fprintln(os.Stderr, "cancelled")
		return
	}
	fmt.Fprintf(os.Stderr, "mdage: %v\n", err)
	os.Exit(1)
}

// newApp reads the config and creates an App. The caller must call the
// returned cleanup function.
func newApp() (*app.App, func(), error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	prompter := newProgressPrompter(app.NewTerminalPrompter(os.Stdin, os.Stderr), os.Stderr)
	a, err := app.NewApp(cfg, app.WithPrompter(prompter))
	if err != nil {
		return nil, nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, func() {
		prompter.Stop()
		a.Close()
	}, nil
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", fmt.Errorf("getting defaults: %w", err)
	}
	return defaults["config_path"], nil
}

// notePath converts a note argument to a vault-relative path. Absolute or
// ./-prefixed paths are taken relative to a filesystem vault root.
func notePath(a *app.App, arg string) (string, error) {
	fsv, ok := a.Vault().(*vault.FileSystemVault)
	if !ok || !(filepath.IsAbs(arg) || strings.HasPrefix(arg, "."+string(filepath.Separator))) {
		return filepath.ToSlash(arg), nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	rel, err := filepath.Rel(fsv.Root(), abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the vault %s", arg, fsv.Root())
	}
	return filepath.ToSlash(rel), nil
}

var rootCmd = &cobra.Command{
	Use:           "mdage",
	Short:         "Encrypt parts of markdown notes with age",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return app.LoadEnvFile(".env")
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultRoot, _ := cmd.Flags().GetString("vault")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}

		if vaultRoot == "" {
			if vaultRoot, err = os.Getwd(); err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
		}
		if vaultRoot, err = filepath.Abs(vaultRoot); err != nil {
			return fmt.Errorf("resolving vault root: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"], vaultRoot)
		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Vault:    %s\n", vaultRoot)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		cfg, err := config.ReadFromFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		enc := cfg.Encryption
		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:      %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Vault:         %s %s\n", cfg.Vault.Type, cfg.Vault.Root)
		fmt.Printf("Database:      %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Default Mode:  %s\n", enc.DefaultMode)
		fmt.Printf("Key Files:     %s\n", strings.Join(enc.KeyFiles, ", "))
		fmt.Printf("Recipients:    %d\n", len(enc.Recipients))
		fmt.Printf("Key File TTL:  %s\n", enc.KeyFileTTL.Duration)
		fmt.Printf("Frontmatter:   excluded=%t\n", enc.ExcludeFrontmatter)
		return nil
	},
}

// keygen command
var keygenCmd = &cobra.Command{
	Use:   "keygen PATH",
	Short: "Create a passphrase-protected key file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		recipient, err := a.Keygen(args[0])
		if err != nil {
			return fmt.Errorf("generating key file: %w", err)
		}

		fmt.Printf("Key file: %s\n", args[0])
		fmt.Printf("Recipient: %s\n", recipient)
		return nil
	},
}

// encrypt command
var encryptCmd = &cobra.Command{
	Use:   "encrypt NOTE",
	Short: "Encrypt a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeFlag, _ := cmd.Flags().GetString("mode")
		hint, _ := cmd.Flags().GetString("hint")
		keyFiles, _ := cmd.Flags().GetStringSlice("key-file")
		recipients, _ := cmd.Flags().GetStringSlice("recipient")

		opts := app.EncryptOptions{Hint: hint}
		if modeFlag != "" {
			m, err := mdage.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			opts.Mode = m
		}
		if cmd.Flags().Changed("key-file") {
			opts.KeyFiles = keyFiles
		}
		if cmd.Flags().Changed("recipient") {
			opts.Recipients = recipients
		}
		if cmd.Flags().Changed("remember") {
			remember, _ := cmd.Flags().GetBool("remember")
			opts.Remember = &remember
		}

		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		path, err := notePath(a, args[0])
		if err != nil {
			return err
		}
		res, err := a.EncryptNote(path, opts)
		if err != nil {
			return err
		}

		for _, w := range res.Warnings {
			warn.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		fmt.Printf("Encrypted %s (%s)\n", path, res.Method)
		return nil
	},
}

// decrypt command
var decryptCmd = &cobra.Command{
	Use:   "decrypt NOTE",
	Short: "Decrypt a note to stdout, or in place with --write",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		write, _ := cmd.Flags().GetBool("write")

		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		path, err := notePath(a, args[0])
		if err != nil {
			return err
		}
		res, err := a.DecryptNote(path, write)
		if err != nil {
			return err
		}

		if write {
			fmt.Printf("Decrypted %s (%s)\n", path, strings.Join(res.Methods, ", "))
			return nil
		}
		fmt.Print(res.Content)
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [DIR]",
	Short: "List notes that contain encrypted blocks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		dir := ""
		if len(args) > 0 {
			if dir, err = notePath(a, args[0]); err != nil {
				return err
			}
		}
		entries, err := a.Scan(dir)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No encrypted notes found.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %s\n", e.Path, strings.Join(e.Methods, ", "))
			if e.Invalid > 0 {
				warn.Fprintf(os.Stderr, "warning: %s has %d unreadable block(s)\n", e.Path, e.Invalid)
			}
		}
		return nil
	},
}

// validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check an encryption mode against the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		modeFlag, _ := cmd.Flags().GetString("mode")

		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		var mode mdage.Mode
		if modeFlag != "" {
			if mode, err = mdage.ParseMode(modeFlag); err != nil {
				return err
			}
		}
		res := a.Validate(mode)
		app.PrintValidation(os.Stdout, res)
		if !res.Valid {
			return fmt.Errorf("%w: %s", mdage.ErrInvalidMode, res.Error)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		ops, err := a.RecentOperations(limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}
		app.PrintHistory(os.Stdout, ops)
		return nil
	},
}

// shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive session that keeps credentials unlocked",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return app.NewShell(a, os.Stdout).Run(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $MDAGE_CONFIG_PATH or ~/.config/mdage.toml)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("vault", "", "Vault root directory (default current directory)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(encryptCmd)
	encryptCmd.Flags().StringP("mode", "m", "", "Encryption mode: passphrase or keyfiles")
	encryptCmd.Flags().String("hint", "", "Hint stored next to the block")
	encryptCmd.Flags().Bool("remember", false, "Remember the passphrase for the session")
	encryptCmd.Flags().StringSlice("key-file", nil, "Key file to encrypt to (repeatable)")
	encryptCmd.Flags().StringSlice("recipient", nil, "age recipient to encrypt to (repeatable)")
	rootCmd.AddCommand(decryptCmd)
	decryptCmd.Flags().BoolP("write", "w", false, "Replace the note with its plaintext")
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringP("mode", "m", "", "Mode to check (default: configured mode)")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(shellCmd)
}
