// Package config reads villar's settings through viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maestroSwift/villarbolsillo/internal/common"
)

// ExpandPath expands $VAR references and a leading ~ in path.
func ExpandPath(path string) string {
	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return path
}

// ResolveFile expands path and checks that it names a readable regular file,
// such as a catalog to import.
func ResolveFile(path string) (string, error) {
	expanded := ExpandPath(strings.TrimSpace(path))
	if expanded == "" {
		return "", fmt.Errorf("%w: empty file path", common.ErrInvalidInput)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", expanded, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", common.ErrInvalidInput, expanded)
	}
	return filepath.Clean(expanded), nil
}
