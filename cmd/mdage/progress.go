package main

import (
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"

	"mdage/internal/app"
)

// progressPrompter shows a spinner between a passphrase answer and the next
// prompt, which covers the scrypt work that follows every passphrase.
type progressPrompter struct {
	app.Prompter

	mu      sync.Mutex
	spinner *spinner.Spinner
}

func newProgressPrompter(inner app.Prompter, w *os.File) *progressPrompter {
	p := &progressPrompter{Prompter: inner}
	if term.IsTerminal(int(w.Fd())) {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
		s.Suffix = " Deriving key..."
		p.spinner = s
	}
	return p
}

func (p *progressPrompter) Passphrase(prompt string) (string, error) {
	p.Stop()
	answer, err := p.Prompter.Passphrase(prompt)
	if err == nil && answer != "" {
		p.start()
	}
	return answer, err
}

func (p *progressPrompter) ReadLine(prompt string) (string, error) {
	p.Stop()
	return p.Prompter.ReadLine(prompt)
}

func (p *progressPrompter) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinner != nil {
		p.spinner.Start()
	}
}

// Stop hides the spinner if it is running.
func (p *progressPrompter) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinner != nil && p.spinner.Active() {
		p.spinner.Stop()
	}
}
