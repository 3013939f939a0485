package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".docsearch.yaml")

	t.Run("no config exists", func(t *testing.T) {
		backupPath, err := Backup(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if backupPath != "" {
			t.Errorf("expected empty backup path for non-existent config, got %s", backupPath)
		}
	})

	t.Run("backup existing config", func(t *testing.T) {
		content := "version: 1\nindex:\n  analyzer: standard\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		backupPath, err := Backup(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(filepath.Base(backupPath), ".docsearch.yaml.bak.") {
			t.Errorf("unexpected backup name %s", backupPath)
		}
		got, err := os.ReadFile(backupPath)
		if err != nil {
			t.Fatalf("failed to read backup: %v", err)
		}
		if string(got) != content {
			t.Errorf("backup content mismatch:\ngot: %s\nwant: %s", got, content)
		}
	})
}

func TestBackup_KeepsMaxBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var last string
	for range MaxBackups + 2 {
		p, err := Backup(path)
		if err != nil {
			t.Fatalf("Backup failed: %v", err)
		}
		last = p
		time.Sleep(5 * time.Millisecond)
	}

	backups, err := ListBackups(path)
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != MaxBackups {
		t.Fatalf("expected %d backups, got %d", MaxBackups, len(backups))
	}
	if backups[0] != last {
		t.Errorf("expected newest backup first, got %s", backups[0])
	}
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	backup := filepath.Join(dir, "saved.yaml")
	if err := os.WriteFile(path, []byte("current\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(backup, []byte("saved\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Restore(path, backup); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "saved\n" {
		t.Errorf("expected restored content, got %q", got)
	}
	backups, _ := ListBackups(path)
	if len(backups) != 1 {
		t.Errorf("expected the replaced config to be backed up, got %v", backups)
	}
}

func TestRestore_MissingBackup(t *testing.T) {
	dir := t.TempDir()
	if err := Restore(filepath.Join(dir, "config.yaml"), filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing backup")
	}
}
