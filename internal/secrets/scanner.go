// Package secrets finds credentials left in a bot project's files, most
// importantly Telegram bot tokens committed next to the code they belong to.
package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zricethezav/gitleaks/v8/detect"
	"github.com/zricethezav/gitleaks/v8/report"
)

// Finding is one detected secret.
type Finding struct {
	RuleID      string `json:"ruleId"`
	Description string `json:"description"`
	File        string `json:"file"`
	Line        int    `json:"line"`
}

type Scanner struct {
	projectPath string
	config      *Config
}

func NewScanner(projectPath string, config *Config) *Scanner {
	if config == nil {
		config = DefaultConfig()
	}
	return &Scanner{
		projectPath: projectPath,
		config:      config,
	}
}

// Scan walks the project and runs the gitleaks default ruleset over every
// file that passes the config's size and exclude filters. Unreadable files
// are skipped, matching how detection treats them.
func (s *Scanner) Scan(ctx context.Context) ([]Finding, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	var findings []Finding
	err = filepath.Walk(s.projectPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.config.ShouldExclude(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || info.Size() > s.config.MaxFileSize {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		for _, f := range detector.DetectString(string(content)) {
			findings = append(findings, fromGitleaks(f, path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

func fromGitleaks(f report.Finding, path string) Finding {
	return Finding{
		RuleID:      f.RuleID,
		Description: f.Description,
		File:        path,
		Line:        f.StartLine,
	}
}
