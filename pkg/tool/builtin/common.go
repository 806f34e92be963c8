package toolbuiltin

import (
	"fmt"
	"os"
	"path/filepath"
)

// resolveRoot canonicalizes root to an absolute path, defaulting to the
// process's working directory when root is empty.
func resolveRoot(root string) string {
	if root == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
		return "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return root
	}
	return abs
}

// coerceString extracts a string from a decoded-JSON parameter value,
// rejecting anything that is not already a string rather than silently
// stringifying numbers or booleans.
func coerceString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}
