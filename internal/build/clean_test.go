package build

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestKeepPatterns(t *testing.T) {
	tests := []struct {
		name string
		keep bool
	}{
		{"libexample_20240101-1_amd64.deb", true},
		{"libexample-dbg_20240101-1_amd64.deb", true},
		{"libexample-tools_20240101-1_amd64.deb", true},
		{"libexample_20240101-1.dsc", true},
		{"libexample_20230101-1_amd64.deb", false},
		{"libexample-tools_20230101-1_amd64.deb", false},
		{"libexample2_20240101-1_amd64.deb", false},
	}
	keep := dpkgKeep("libexample", "20240101")
	for _, tt := range tests {
		if got := keep.MatchString(tt.name); got != tt.keep {
			t.Errorf("dpkgKeep(%q) = %v, want %v", tt.name, got, tt.keep)
		}
	}

	tests = []struct {
		name string
		keep bool
	}{
		{"libexample-20240101-1.x86_64.rpm", true},
		{"libexample-devel-20240101-1.x86_64.rpm", true},
		{"libexample-20240101-1.i686.rpm", false},
		{"libexample-20230101-1.x86_64.rpm", false},
		{"libexample-20240101-1.x86_64.rpm.bak", false},
	}
	keep = rpmKeep("libexample", "20240101", "x86_64")
	for _, tt := range tests {
		if got := keep.MatchString(tt.name); got != tt.keep {
			t.Errorf("rpmKeep(%q) = %v, want %v", tt.name, got, tt.keep)
		}
	}

	if exactly("a.b").MatchString("axb") {
		t.Errorf("exactly does not quote meta characters")
	}
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	if err := touch(dir, "example-1.dmg", "example-2.dmg", "example-3.dmg/contents", "other-1.dmg"); err != nil {
		t.Fatal(err)
	}
	if err := sweep(dir, "example-*.dmg", exactly("example-2.dmg")); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if got, want := len(names), 2; got != want || names[0] != "example-2.dmg" || names[1] != "other-1.dmg" {
		t.Errorf("remaining = %v, want [example-2.dmg other-1.dmg]", names)
	}
}

func TestSweepFunc(t *testing.T) {
	dir := t.TempDir()
	if err := touch(dir, "a-1.tar.gz", "a-2.tar.gz"); err != nil {
		t.Fatal(err)
	}
	var removed []string
	err := sweepFunc(dir, "a-*.tar.gz", nil, func(path string) error {
		removed = append(removed, filepath.Base(path))
		return nil
	})
	if err != nil {
		t.Fatalf("sweepFunc: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("removed = %v, want both archives", removed)
	}
}

func TestMoveInto(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	if err := touch(src, "a.rpm", "b.rpm", "c.txt"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dst, "b.rpm"), []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	moved, err := moveInto(filepath.Join(src, "*.rpm"), dst)
	if err != nil {
		t.Fatalf("moveInto: %v", err)
	}
	if len(moved) != 1 || moved[0] != filepath.Join(dst, "a.rpm") {
		t.Errorf("moved = %v, want [%s]", moved, filepath.Join(dst, "a.rpm"))
	}
	// An existing output is not overwritten.
	data, _ := os.ReadFile(filepath.Join(dst, "b.rpm"))
	if string(data) != "existing" {
		t.Errorf("b.rpm was overwritten")
	}
	if !exists(filepath.Join(src, "b.rpm")) {
		t.Errorf("b.rpm was removed from the source")
	}
}

func TestCopyFilePreservesMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "rules")
	if err := os.WriteFile(src, []byte("#!/usr/bin/make -f\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "rules.copy")
	if err := copyFile(src, dst); err != nil {
		t.Fatalf("copyFile: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("mode = %v, want executable", info.Mode())
	}
}
