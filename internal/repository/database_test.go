package repository

import (
	"path/filepath"
	"testing"

	"github.com/yuqie6/GradeMirror/internal/pkg/buildinfo"
	"github.com/yuqie6/GradeMirror/internal/schema"
)

func TestNewDatabaseMigratesAndRecordsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "grades.db")
	d, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	defer d.Close()

	if d.SafeMode {
		t.Fatalf("unexpected safe mode: %s", d.MigrationError)
	}
	if d.SchemaVersion != latestSchemaVersion {
		t.Fatalf("schema version=%d, want %d", d.SchemaVersion, latestSchemaVersion)
	}
	if !d.DB.Migrator().HasTable(&schema.DocumentRecord{}) {
		t.Fatalf("documents table missing")
	}

	var meta schema.SchemaMeta
	if err := d.DB.First(&meta, 1).Error; err != nil {
		t.Fatalf("read schema_meta: %v", err)
	}
	if meta.AppVersion != buildinfo.Version {
		t.Fatalf("app version=%q, want %q", meta.AppVersion, buildinfo.Version)
	}
}

func TestNewDatabaseRefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grades.db")
	d, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	if err := d.DB.Model(&schema.SchemaMeta{}).Where("id = ?", 1).Update("schema_version", latestSchemaVersion+1).Error; err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = d.Close()

	d, err = NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer d.Close()
	if !d.SafeMode || d.MigrationError == "" {
		t.Fatalf("expected safe mode for newer schema")
	}
}
