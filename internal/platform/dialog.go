package platform

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// DialogTitle is shown in the folder picker window
const DialogTitle = "Select Folder"

// ErrNoDialog is returned when no folder picker is available on this system
var ErrNoDialog = errors.New("no folder dialog available")

// OpenFolderDialog shows the native folder picker starting at start. It
// returns an empty string when the user cancels.
func OpenFolderDialog(ctx context.Context, start string) (string, error) {
	name, args := dialogCommand(runtime.GOOS, start)
	if _, err := exec.LookPath(name); err != nil {
		return "", fmt.Errorf("%w: %s not found", ErrNoDialog, name)
	}

	out, err := execCommand(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			// every supported picker exits non-zero on cancel
			return "", nil
		}
		return "", fmt.Errorf("folder dialog: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// dialogCommand returns the picker invocation for goos
func dialogCommand(goos, start string) (string, []string) {
	switch goos {
	case OSDarwin:
		script := fmt.Sprintf(`POSIX path of (choose folder with prompt %q default location POSIX file %q)`, DialogTitle, start)
		return "osascript", []string{"-e", script}
	case OSWindows:
		script := strings.Join([]string{
			"Add-Type -AssemblyName System.Windows.Forms",
			"$d = New-Object System.Windows.Forms.FolderBrowserDialog",
			fmt.Sprintf("$d.Description = '%s'", DialogTitle),
			fmt.Sprintf("$d.SelectedPath = '%s'", strings.ReplaceAll(start, "'", "''")),
			"if ($d.ShowDialog() -eq 'OK') { $d.SelectedPath } else { exit 1 }",
		}, "; ")
		return "powershell", []string{"-NoProfile", "-STA", "-Command", script}
	default:
		return "zenity", []string{
			"--file-selection",
			"--directory",
			"--title=" + DialogTitle,
			"--filename=" + strings.TrimSuffix(start, "/") + "/",
		}
	}
}
