// Package sqlitepath locates an existing judgebench SQLite database for
// commands that read stored runs.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const dbName = "judgebench.sqlite"

// ResolveSQLitePath returns configured when that file exists. Otherwise it
// looks for the database next to the config in configDir, in the working
// directory, in ~/.judgebench and in $XDG_DATA_HOME/judgebench.
func ResolveSQLitePath(configured, configDir string) (string, error) {
	if configured != "" && exists(configured) {
		return configured, nil
	}

	for _, candidate := range sqliteCandidates(configured, configDir) {
		if exists(candidate) {
			return candidate, nil
		}
	}

	return "", errors.New("could not find judgebench SQLite database; pass --sqlite")
}

func sqliteCandidates(configured, configDir string) []string {
	var candidates []string

	names := []string{dbName}
	if configured != "" && !filepath.IsAbs(configured) && filepath.Base(configured) != dbName {
		names = append([]string{filepath.Base(configured)}, names...)
	}

	if configDir != "" {
		for _, n := range names {
			candidates = append(candidates, filepath.Join(configDir, n))
		}
	}

	for _, n := range names {
		candidates = append(candidates, n, filepath.Join(".judgebench", n))
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".judgebench", dbName))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "judgebench", dbName))
	}

	return candidates
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
