package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.BufSize != 8192 {
		t.Fatalf("BufSize = %d, want 8192", cfg.BufSize)
	}
	if cfg.FopenMax != 16 {
		t.Fatalf("FopenMax = %d, want 16", cfg.FopenMax)
	}
}

func TestLoadOverridesAndFills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt.yaml")
	if err := os.WriteFile(path, []byte("buf_size: 64\nfopen_max: 8\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BufSize != 64 {
		t.Fatalf("BufSize = %d, want 64", cfg.BufSize)
	}
	if cfg.FopenMax != 8 {
		t.Fatalf("FopenMax = %d, want 8", cfg.FopenMax)
	}
	if cfg.OpenMax != Default().OpenMax {
		t.Fatalf("OpenMax = %d, want default %d", cfg.OpenMax, Default().OpenMax)
	}
}

func TestLoadRejectsTinyStreamTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt.yaml")
	if err := os.WriteFile(path, []byte("fopen_max: 2\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted fopen_max below the standard streams")
	}
}
