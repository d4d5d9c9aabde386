package testsupport

import (
	"testing"

	"nexuscap/internal/config"
	"nexuscap/internal/manifest"
)

// NewConfig produces a config rooted in a unique temp directory per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	cfgVal := config.Default()
	cfgVal.BaseDir = t.TempDir()
	if err := cfgVal.Normalize(); err != nil {
		t.Fatalf("normalize config: %v", err)
	}
	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfgVal
}

// MustOpenStore opens a manifest store for the given config and closes it when
// the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *manifest.Store {
	t.Helper()

	store, err := manifest.Open(cfg)
	if err != nil {
		t.Fatalf("open manifest store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close manifest store: %v", err)
		}
	})
	return store
}
