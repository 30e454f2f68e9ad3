package storage

import (
	"path"
	"strings"
)

// Clean normalizes a mirror-relative path and rejects anything escaping the root.
func Clean(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", ErrInvalidPath
	}
	return p, nil
}

// Join joins path segments with "/" ignoring empty segments.
func Join(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, "/")
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, "/")
}
