package platform

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// YTDLPName is the executable name of yt-dlp without extension
const YTDLPName = "yt-dlp"

// FindYTDLP picks the yt-dlp executable: the configured path when set, a
// copy in the working directory, else whatever is on PATH.
func FindYTDLP(configured string) string {
	if configured != "" {
		return configured
	}

	name := YTDLPName
	if runtime.GOOS == OSWindows {
		name += ".exe"
	}

	if wd, err := os.Getwd(); err == nil {
		local := filepath.Join(wd, name)
		if info, err := os.Stat(local); err == nil && !info.IsDir() {
			return local
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return YTDLPName
}
