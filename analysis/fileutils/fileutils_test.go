package fileutils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBackupFileIfExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "checkpoint.json")
	dst := filepath.Join(dir, "backup", "checkpoint.prev.json")

	// Missing src: no-op.
	copied, err := BackupFileIfExists(src, dst, false)
	if err != nil {
		t.Fatalf("backup missing src: %v", err)
	}
	if copied {
		t.Fatalf("expected copied=false for missing src")
	}

	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	copied, err = BackupFileIfExists(src, dst, false)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if !copied {
		t.Fatalf("expected copied=true")
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("dst=%q", string(b))
	}

	// Without overwrite, should not change dst.
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatalf("write src2: %v", err)
	}
	copied, err = BackupFileIfExists(src, dst, false)
	if err != nil {
		t.Fatalf("backup no-overwrite: %v", err)
	}
	if copied {
		t.Fatalf("expected copied=false when dst exists and overwrite=false")
	}
	b, _ = os.ReadFile(dst)
	if string(b) != "hello" {
		t.Fatalf("dst changed unexpectedly: %q", string(b))
	}

	copied, err = BackupFileIfExists(src, dst, true)
	if err != nil {
		t.Fatalf("backup overwrite: %v", err)
	}
	if !copied {
		t.Fatalf("expected copied=true when overwrite=true")
	}
	b, _ = os.ReadFile(dst)
	if string(b) != "new" {
		t.Fatalf("dst=%q", string(b))
	}
}

func TestWriteJSONFileAtomic_ReplacesAndLeavesNoTemp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.json")

	if err := WriteJSONFileAtomic(path, map[string]int{"a": 1}, true); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteJSONFileAtomic(path, map[string]int{"b": 2}, false); err != nil {
		t.Fatalf("second write: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasSuffix(string(b), "\n") {
		t.Fatalf("expected trailing newline, got %q", string(b))
	}
	var got map[string]int
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got["b"] != 2 {
		t.Fatalf("got=%v", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only report.json, got %v", names)
	}
}

func TestTruncateAndSingleLine(t *testing.T) {
	t.Parallel()

	if got := SingleLine("great\r\nsound\n\n  and   battery"); got != "great sound and battery" {
		t.Fatalf("SingleLine=%q", got)
	}
	if got := Truncate("  abcdef  ", 3); got != "abc…" {
		t.Fatalf("Truncate=%q", got)
	}
	if got := Truncate("héllo", 2); got != "h…" {
		t.Fatalf("Truncate multibyte=%q", got)
	}
	if got := Truncate("short", 0); got != "short" {
		t.Fatalf("Truncate no-limit=%q", got)
	}
}
