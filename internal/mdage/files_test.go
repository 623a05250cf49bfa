package mdage

import (
	"path/filepath"
	"testing"
)

func TestPathResolver_Resolve(t *testing.T) {
	home := filepath.FromSlash("/home/alice")
	env := map[string]string{"KEYS": filepath.FromSlash("/srv/keys"), "SUB": "nested"}
	r := &PathResolver{
		HomeDir: home,
		LookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
	}

	tests := []struct {
		name string
		raw  string
		want Location
	}{
		{
			name: "vault relative",
			raw:  "keys/main.age",
			want: Location{Path: "keys/main.age"},
		},
		{
			name: "vault relative is cleaned",
			raw:  "./keys//main.age",
			want: Location{Path: "keys/main.age"},
		},
		{
			name: "surrounding whitespace trimmed",
			raw:  "  keys/main.age ",
			want: Location{Path: "keys/main.age"},
		},
		{
			name: "absolute is external",
			raw:  "/etc/mdage/key.age",
			want: Location{Path: filepath.Clean("/etc/mdage/key.age"), External: true},
		},
		{
			name: "home shorthand",
			raw:  "~/.age/key.age",
			want: Location{Path: filepath.Join(home, ".age", "key.age"), External: true},
		},
		{
			name: "bare home",
			raw:  "~",
			want: Location{Path: home, External: true},
		},
		{
			name: "env var expands to absolute",
			raw:  "$KEYS/key.age",
			want: Location{Path: filepath.Join(env["KEYS"], "key.age"), External: true},
		},
		{
			name: "braced env var in relative path",
			raw:  "keys/${SUB}/key.age",
			want: Location{Path: "keys/nested/key.age"},
		},
		{
			name: "unset env var stays literal",
			raw:  "$MISSING/key.age",
			want: Location{Path: "${MISSING}/key.age"},
		},
		{
			name: "tilde inside a name is literal",
			raw:  "keys/~backup.age",
			want: Location{Path: "keys/~backup.age"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := r.Resolve(tt.raw)
			if got != tt.want {
				t.Errorf("Resolve(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPathResolver_NoHome(t *testing.T) {
	t.Parallel()
	r := &PathResolver{}
	got := r.Resolve("~/key.age")
	if got.External || got.Path != "~/key.age" {
		t.Errorf("Resolve() = %+v, want literal vault path", got)
	}
}
