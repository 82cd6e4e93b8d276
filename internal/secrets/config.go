package secrets

import (
	"path/filepath"
	"strings"
)

// Config bounds the directory walk.
type Config struct {
	// MaxFileSize is the largest file, in bytes, the scanner will read.
	MaxFileSize int64
	// ExcludePatterns are matched against individual path segments.
	ExcludePatterns []string
}

// DefaultConfig covers what a Python bot project typically accumulates next
// to its sources.
func DefaultConfig() *Config {
	return &Config{
		MaxFileSize: 1 * 1024 * 1024, // 1MB
		ExcludePatterns: []string{
			".git",
			".hg",
			".svn",
			".venv",
			"venv",
			"__pycache__",
			".pytest_cache",
			".tox",
			"*.egg-info",
			".eggs",
			"node_modules",
			".idea",
			".vscode",
			"dist",
			"build",
			".cache",
			"tmp",
			".tmp",
		},
	}
}

// ShouldExclude reports whether any segment of the path matches an exclude
// pattern.
func (c *Config) ShouldExclude(path string) bool {
	normalized := filepath.ToSlash(filepath.Clean(path))
	for _, part := range strings.Split(normalized, "/") {
		if part == "" || part == "." {
			continue
		}
		for _, pattern := range c.ExcludePatterns {
			if strings.Contains(pattern, "*") {
				if matched, _ := filepath.Match(pattern, part); matched {
					return true
				}
			} else if part == pattern {
				return true
			}
		}
	}
	return false
}
