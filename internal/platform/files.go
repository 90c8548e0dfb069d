package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Operating system constants
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
	OSLinux   = "linux"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Command constants
const (
	OpenCommand     = "open"
	ExplorerCommand = "explorer"
	XDGOpenCommand  = "xdg-open"
)

// DownloadsDirName is the conventional per-user download folder
const DownloadsDirName = "Downloads"

// File manager names
var (
	LinuxFileManagers = []string{"nautilus", "dolphin", "thunar", "nemo", "pcmanfm"}
)

var execCommand = exec.CommandContext

// GetHomeDownloadsDir returns ~/Downloads, or the home directory itself when
// there is no Downloads folder
func GetHomeDownloadsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	downloadsDir := filepath.Join(homeDir, DownloadsDirName)
	if info, err := os.Stat(downloadsDir); err != nil || !info.IsDir() {
		return homeDir, nil
	}
	return downloadsDir, nil
}

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if dirPath == "" {
		return errors.New("directory path is empty")
	}
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// OpenFolder shows dirPath in the system file manager
func OpenFolder(ctx context.Context, dirPath string) error {
	info, err := os.Stat(dirPath)
	if err != nil {
		return fmt.Errorf("folder does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a folder: %s", dirPath)
	}

	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	switch runtime.GOOS {
	case OSDarwin:
		return execCommand(ctx, OpenCommand, absPath).Run()
	case OSWindows:
		// explorer exits with 1 even on success
		_ = execCommand(ctx, ExplorerCommand, absPath).Run()
		return nil
	default:
		return openFolderLinux(ctx, absPath)
	}
}

// openFolderLinux tries xdg-open first, then well-known file managers
func openFolderLinux(ctx context.Context, dir string) error {
	if err := execCommand(ctx, XDGOpenCommand, dir).Run(); err == nil {
		return nil
	}

	for _, fm := range LinuxFileManagers {
		if _, err := exec.LookPath(fm); err == nil {
			return execCommand(ctx, fm, dir).Start()
		}
	}

	return fmt.Errorf("no suitable file manager found")
}
