package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMigrationFilesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_scores.sql", "001_initial.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := MigrationFiles(dir)
	if err != nil {
		t.Fatalf("MigrationFiles: %v", err)
	}
	want := []string{filepath.Join(dir, "001_initial.sql"), filepath.Join(dir, "002_scores.sql")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MigrationFiles mismatch (-want +got):\n%s", diff)
	}
}

func TestMigrationFilesEmptyDir(t *testing.T) {
	if _, err := MigrationFiles(t.TempDir()); err == nil {
		t.Error("expected error for a directory without migrations")
	}
}

func TestRepositoryMigrationsPresent(t *testing.T) {
	files, err := MigrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("MigrationFiles: %v", err)
	}
	if filepath.Base(files[0]) != "001_initial.sql" {
		t.Errorf("first migration = %s, want 001_initial.sql", filepath.Base(files[0]))
	}
}
