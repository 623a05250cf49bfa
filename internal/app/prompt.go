package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrCancelled is returned when the user dismisses a prompt. Callers treat
// it as a clean no-op.
var ErrCancelled = errors.New("cancelled")

// Prompter asks the user for input. An empty answer or io.EOF means the
// user cancelled.
type Prompter interface {
	// Passphrase reads a secret without echo.
	Passphrase(prompt string) (string, error)
	// ReadLine reads one line of plain input.
	ReadLine(prompt string) (string, error)
}

// TerminalPrompter reads from a terminal, falling back to line input when
// in is not a terminal.
type TerminalPrompter struct {
	in  *os.File
	out io.Writer

	once   sync.Once
	reader *bufio.Reader
}

// NewTerminalPrompter prompts on out and reads from in.
func NewTerminalPrompter(in *os.File, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out}
}

func (p *TerminalPrompter) lines() *bufio.Reader {
	p.once.Do(func() { p.reader = bufio.NewReader(p.in) })
	return p.reader
}

func (p *TerminalPrompter) Passphrase(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return p.readLine()
	}
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func (p *TerminalPrompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	return p.readLine()
}

func (p *TerminalPrompter) readLine() (string, error) {
	line, err := p.lines().ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var _ Prompter = (*TerminalPrompter)(nil)

// ScriptedPrompter answers prompts from a fixed list and records what was
// asked. When the answers run out it returns io.EOF.
type ScriptedPrompter struct {
	mu      sync.Mutex
	answers []string
	asked   []string
}

// NewScriptedPrompter returns a prompter that replies with answers in order.
func NewScriptedPrompter(answers ...string) *ScriptedPrompter {
	return &ScriptedPrompter{answers: answers}
}

func (p *ScriptedPrompter) Passphrase(prompt string) (string, error) { return p.next(prompt) }
func (p *ScriptedPrompter) ReadLine(prompt string) (string, error)   { return p.next(prompt) }

func (p *ScriptedPrompter) next(prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, prompt)
	if len(p.answers) == 0 {
		return "", io.EOF
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

// Asked returns the prompts shown so far.
func (p *ScriptedPrompter) Asked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.asked...)
}

// Remaining returns the number of unused answers.
func (p *ScriptedPrompter) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.answers)
}

var _ Prompter = (*ScriptedPrompter)(nil)

// askSecret reads a passphrase and maps an empty answer or EOF to ErrCancelled.
func askSecret(p Prompter, prompt string) (string, error) {
	s, err := p.Passphrase(prompt)
	if errors.Is(err, io.EOF) || (err == nil && s == "") {
		return "", ErrCancelled
	}
	return s, err
}

// askNewSecret reads a passphrase twice and fails if the entries differ.
func askNewSecret(p Prompter, prompt string) (string, error) {
	first, err := askSecret(p, prompt)
	if err != nil {
		return "", err
	}
	second, err := askSecret(p, "Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

// askYesNo reads a y/n answer. Anything but yes, including EOF, is no.
func askYesNo(p Prompter, prompt string) (bool, error) {
	answer, err := p.ReadLine(prompt)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// askChoice shows options numbered from 1 and returns the chosen index.
func askChoice(p Prompter, prompt string, options []string) (int, error) {
	var sb strings.Builder
	sb.WriteString(prompt)
	for i, o := range options {
		fmt.Fprintf(&sb, " [%d] %s", i+1, o)
	}
	sb.WriteString(": ")

	answer, err := p.ReadLine(sb.String())
	if errors.Is(err, io.EOF) {
		return 0, ErrCancelled
	}
	if err != nil {
		return 0, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return 0, ErrCancelled
	}

	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return n - 1, nil
	}
	for i, o := range options {
		if strings.EqualFold(answer, o) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid choice %q", answer)
}
