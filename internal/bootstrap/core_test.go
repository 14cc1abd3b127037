package bootstrap

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/yuqie6/GradeMirror/internal/pkg/config"
)

func TestNewCorePersistsAcrossRestarts(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := config.Default()
	cfg.Storage.DBPath = filepath.Join(dir, "grades.db")
	if err := config.WriteFile(cfgPath, cfg); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	ctx := context.Background()
	core, err := NewCore(ctx, cfgPath)
	if err != nil {
		t.Fatalf("NewCore error: %v", err)
	}
	if err := core.Services.Tracker.SetUserName(ctx, "Ana"); err != nil {
		t.Fatalf("SetUserName error: %v", err)
	}
	if err := core.Services.Tracker.SetTotalSemesters(ctx, 4); err != nil {
		t.Fatalf("SetTotalSemesters error: %v", err)
	}
	if err := core.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	core, err = NewCore(ctx, cfgPath)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer core.Close()

	doc := core.Services.Tracker.Document()
	if doc.UserName != "Ana" || len(doc.Semesters) != 4 {
		t.Fatalf("doc after restart=%+v", doc)
	}
}
