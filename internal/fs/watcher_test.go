package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mdage/internal/fs"
	"mdage/internal/mdage"
	"mdage/internal/testutil"
	"mdage/internal/vault"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func watcherTestEnv(t *testing.T) (string, *mdage.KeyFileCache) {
	t.Helper()
	root := t.TempDir()
	v, err := vault.NewFileSystemVault(root)
	if err != nil {
		t.Fatal(err)
	}
	files := fs.NewKeyFileAccess(v)
	resolver := &mdage.PathResolver{LookupEnv: func(string) (string, bool) { return "", false }}
	clock := testutil.FixedClock()

	testutil.WriteKeyFile(t, files, resolver, clock, "keys/main.age", "pw")

	cache := mdage.NewKeyFileCache(testutil.NewFastCrypto(), files, resolver, clock, mdage.NewNopLogger())
	if _, err := cache.Unlock("keys/main.age", "pw"); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	return root, cache
}

func TestKeyFileWatcher_ModifiedKeyFileIsForgotten(t *testing.T) {
	root, cache := watcherTestEnv(t)

	var mu sync.Mutex
	var forgotten []string
	w := fs.NewKeyFileWatcher(cache, []string{"keys/main.age"}, root, mdage.NewNopLogger(), func(path string) {
		mu.Lock()
		forgotten = append(forgotten, path)
		mu.Unlock()
	})
	if w.Watched() != 1 {
		t.Fatalf("Watched() = %d, want 1", w.Watched())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "keys", "main.age"), []byte("rotated"), 0o600)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !cache.IsUnlocked("keys/main.age")
	}, "modified key file still unlocked")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(forgotten) == 1 && forgotten[0] == "keys/main.age"
	}, "expected forget callback for keys/main.age")
}

func TestKeyFileWatcher_UnrelatedFileIgnored(t *testing.T) {
	root, cache := watcherTestEnv(t)

	w := fs.NewKeyFileWatcher(cache, []string{"keys/main.age"}, root, mdage.NewNopLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "keys", "other.txt"), []byte("x"), 0o600)
	time.Sleep(300 * time.Millisecond)

	if !cache.IsUnlocked("keys/main.age") {
		t.Error("unrelated write dropped the cached identity")
	}
}

func TestKeyFileWatcher_NoVaultRootSkipsVaultPaths(t *testing.T) {
	t.Parallel()
	cache := mdage.NewKeyFileCache(testutil.NewFastCrypto(), fs.NewKeyFileAccess(vault.NewMemoryVault()),
		&mdage.PathResolver{}, testutil.FixedClock(), mdage.NewNopLogger())

	w := fs.NewKeyFileWatcher(cache, []string{"keys/main.age", "/etc/mdage/key.age"}, "", mdage.NewNopLogger(), nil)
	if w.Watched() != 1 {
		t.Errorf("Watched() = %d, want 1", w.Watched())
	}
}

func TestKeyFileWatcher_RunReturnsOnCancel(t *testing.T) {
	t.Parallel()
	cache := mdage.NewKeyFileCache(testutil.NewFastCrypto(), fs.NewKeyFileAccess(vault.NewMemoryVault()),
		&mdage.PathResolver{}, testutil.FixedClock(), mdage.NewNopLogger())
	w := fs.NewKeyFileWatcher(cache, nil, "", mdage.NewNopLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
