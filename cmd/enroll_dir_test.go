package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/roll-call/internal/config"
)

func TestParseEnrollFileName(t *testing.T) {
	tests := []struct {
		path     string
		wantOK   bool
		wantRoll string
		wantName string
	}{
		{"photos/CS101_Asha_Verma.jpg", true, "CS101", "Asha Verma"},
		{"CS102_Ravi.PNG", true, "CS102", "Ravi"},
		{"CS103_Jean__Luc_.jpeg", true, "CS103", "Jean Luc"},
		{"CS104_Zoë.gif", true, "CS104", "Zoë"},
		{"CS105.jpg", false, "", ""},
		{"_Nameless.jpg", false, "", ""},
		{"CS106_.jpg", false, "", ""},
		{"CS107_Notes.txt", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := parseEnrollFileName(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.RollNumber != tt.wantRoll {
				t.Errorf("RollNumber = %q, want %q", got.RollNumber, tt.wantRoll)
			}
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
			if got.Path != tt.path {
				t.Errorf("Path = %q, want %q", got.Path, tt.path)
			}
		})
	}
}

func TestScanEnrollDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"CS102_Ravi.jpg", "CS101_Asha.jpg", "readme.txt", "broken.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "CS103_Folder.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, skipped, err := scanEnrollDir(dir)
	if err != nil {
		t.Fatalf("scanEnrollDir: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].RollNumber != "CS101" || files[1].RollNumber != "CS102" {
		t.Errorf("files not sorted by name: %s, %s", files[0].RollNumber, files[1].RollNumber)
	}
	if len(skipped) != 2 {
		t.Errorf("expected 2 skipped files, got %v", skipped)
	}
}

func TestScanEnrollDir_Missing(t *testing.T) {
	if _, _, err := scanEnrollDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestNewLogger_Level(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := newLogger(config.LogConfig{Level: tt.level, Format: "json"})
			ctx := context.Background()
			if !logger.Enabled(ctx, tt.want) {
				t.Errorf("level %s should be enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && logger.Enabled(ctx, tt.want-4) {
				t.Errorf("level %s should be disabled", tt.want-4)
			}
		})
	}
}
