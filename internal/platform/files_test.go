package platform

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "nested", "test_dir")

	// Directory should not exist initially
	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if _, err := os.Stat(testDir); os.IsNotExist(err) {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}

	if err := CreateDirectoryIfNotExists(""); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestGetHomeDownloadsDir(t *testing.T) {
	if runtime.GOOS == OSWindows {
		t.Skip("home directory comes from USERPROFILE on windows")
	}

	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := GetHomeDownloadsDir()
	if err != nil {
		t.Fatalf("Failed to get downloads directory: %v", err)
	}
	if dir != home {
		t.Errorf("Expected fallback to home %s, got %s", home, dir)
	}

	downloads := filepath.Join(home, DownloadsDirName)
	if err := os.Mkdir(downloads, DefaultDirPermissions); err != nil {
		t.Fatal(err)
	}

	dir, err = GetHomeDownloadsDir()
	if err != nil {
		t.Fatalf("Failed to get downloads directory: %v", err)
	}
	if dir != downloads {
		t.Errorf("Expected %s, got %s", downloads, dir)
	}
}

func TestOpenFolder_Missing(t *testing.T) {
	err := OpenFolder(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("Expected error for missing folder")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected 'does not exist' in error, got: %v", err)
	}
}

func TestOpenFolder_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := OpenFolder(context.Background(), file); err == nil {
		t.Fatal("Expected error for a regular file")
	}
}

func TestDialogCommand(t *testing.T) {
	tests := []struct {
		goos     string
		name     string
		contains []string
	}{
		{OSLinux, "zenity", []string{"--directory", "--filename=/home/u/Downloads/"}},
		{"freebsd", "zenity", []string{"--file-selection"}},
		{OSDarwin, "osascript", []string{"choose folder", `"/home/u/Downloads"`}},
		{OSWindows, "powershell", []string{"FolderBrowserDialog", "'/home/u/Downloads'"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args := dialogCommand(tt.goos, "/home/u/Downloads")
			if name != tt.name {
				t.Errorf("Expected command %s, got %s", tt.name, name)
			}
			joined := strings.Join(args, " ")
			for _, want := range tt.contains {
				if !strings.Contains(joined, want) {
					t.Errorf("Expected %q in %q", want, joined)
				}
			}
		})
	}
}

func TestFindYTDLP(t *testing.T) {
	if got := FindYTDLP("/opt/bin/yt-dlp"); got != "/opt/bin/yt-dlp" {
		t.Errorf("Expected configured path, got %s", got)
	}

	if runtime.GOOS == OSWindows {
		t.Skip("local lookup uses yt-dlp.exe on windows")
	}

	dir := t.TempDir()
	t.Chdir(dir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	local := filepath.Join(wd, YTDLPName)
	if err := os.WriteFile(local, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	if got := FindYTDLP(""); got != local {
		t.Errorf("Expected local binary %s, got %s", local, got)
	}
}
