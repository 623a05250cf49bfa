package fs

import (
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines and comments", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.log"})
		want := len(defaultIgnorePatterns) + 1
		if len(m.patterns) != want {
			t.Fatalf("expected %d patterns, got %d", want, len(m.patterns))
		}
		if last := m.patterns[len(m.patterns)-1].pattern; last != "*.log" {
			t.Errorf("expected *.log, got %s", last)
		}
	})

	t.Run("classifies path vs basename patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"*.log", "build/output"})
		n := len(defaultIgnorePatterns)
		if m.patterns[n].matchPath {
			t.Error("*.log should not be a path pattern")
		}
		if !m.patterns[n+1].matchPath {
			t.Error("build/output should be a path pattern")
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{
			name:         "basename glob matches file in root",
			patterns:     []string{"*.log"},
			relativePath: "app.log",
			want:         true,
		},
		{
			name:         "basename glob matches file in subdirectory",
			patterns:     []string{"*.log"},
			relativePath: filepath.Join("sub", "app.log"),
			want:         true,
		},
		{
			name:         "basename glob does not match different extension",
			patterns:     []string{"*.log"},
			relativePath: "app.txt",
			want:         false,
		},
		{
			name:         "exact basename match",
			patterns:     []string{"Secrets.md"},
			relativePath: "Secrets.md",
			want:         true,
		},
		{
			name:         "exact basename matches in subdirectory",
			patterns:     []string{".DS_Store"},
			relativePath: filepath.Join("sub", ".DS_Store"),
			want:         true,
		},
		{
			name:         "path pattern matches exact relative path",
			patterns:     []string{"build/output"},
			relativePath: filepath.Join("build", "output"),
			want:         true,
		},
		{
			name:         "path pattern does not match wrong path",
			patterns:     []string{"build/output"},
			relativePath: filepath.Join("src", "output"),
			want:         false,
		},
		{
			name:         "path pattern with glob",
			patterns:     []string{"build/*.o"},
			relativePath: filepath.Join("build", "main.o"),
			want:         true,
		},
		{
			name:         "question mark wildcard",
			patterns:     []string{"?.txt"},
			relativePath: "a.txt",
			want:         true,
		},
		{
			name:         "question mark does not match multiple chars",
			patterns:     []string{"?.txt"},
			relativePath: "ab.txt",
			want:         false,
		},
		{
			name:         "character class",
			patterns:     []string{"*.[oa]"},
			relativePath: "main.o",
			want:         true,
		},
		{
			name:         "no patterns matches nothing",
			patterns:     nil,
			relativePath: "anything.txt",
			want:         false,
		},
		{
			name:         "obsidian config dir ignored by default",
			patterns:     nil,
			relativePath: ".obsidian/workspace.md",
			want:         true,
		},
		{
			name:         "trash ignored by default",
			patterns:     nil,
			relativePath: ".trash/old.md",
			want:         true,
		},
		{
			name:         "obsidian plugin files ignored at any depth",
			patterns:     nil,
			relativePath: ".obsidian/plugins/x/README.md",
			want:         true,
		},
		{
			name:         "nested trash ignored",
			patterns:     nil,
			relativePath: ".trash/sub/old.md",
			want:         true,
		},
		{
			name:         "path pattern ignores whole directory",
			patterns:     []string{"archive/*"},
			relativePath: "archive/2023/jan.md",
			want:         true,
		},
		{
			name:         "path pattern does not match sibling directory",
			patterns:     []string{"archive/*"},
			relativePath: "archives/jan.md",
			want:         false,
		},
		{
			name:         "empty string path",
			patterns:     []string{"*.log"},
			relativePath: "",
			want:         false,
		},
		{
			name:         "multiple patterns first matches",
			patterns:     []string{"*.log", "*.tmp"},
			relativePath: "debug.log",
			want:         true,
		},
		{
			name:         "multiple patterns second matches",
			patterns:     []string{"*.log", "*.tmp"},
			relativePath: "data.tmp",
			want:         true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			got := m.Match(tt.relativePath)
			if got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

func TestParseIgnorePatterns(t *testing.T) {
	t.Parallel()
	content := "*.log\n# comment\n\nDaily/*\nbuild/output\n"

	patterns := ParseIgnorePatterns([]byte(content))
	if len(patterns) != 5 { // blank and comment lines are kept; NewIgnoreMatcher filters them
		t.Fatalf("expected 5 raw lines, got %d", len(patterns))
	}

	m := NewIgnoreMatcher(patterns)
	if got := len(m.patterns) - len(defaultIgnorePatterns); got != 3 {
		t.Errorf("expected 3 parsed patterns, got %d", got)
	}
	if !m.Match("Daily/2024-01-01.md") {
		t.Error("expected Daily/2024-01-01.md to be ignored")
	}
}

func TestParseIgnorePatterns_Empty(t *testing.T) {
	t.Parallel()
	if got := ParseIgnorePatterns(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
