package sourcecontrol

import (
	"os"
	"path/filepath"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/zerr"
)

// DiscoverRoot walks upward from start and returns the nearest directory holding a
// .git entry. Without one, the nearest directory holding memo.yaml is returned.
func DiscoverRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", zerr.Wrap(err, "failed to resolve start directory")
	}

	var configDir string
	for dir := abs; ; {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		if configDir == "" {
			if _, err := os.Stat(filepath.Join(dir, domain.ConfigFileName)); err == nil {
				configDir = dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if configDir != "" {
		return configDir, nil
	}
	return "", zerr.With(domain.ErrConfigNotFound, "start", abs)
}
