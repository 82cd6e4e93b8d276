// Package deps checks a bot project's dependency manifests (requirements.txt
// and friends) against the OSV vulnerability database.
package deps

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/osv-scanner/v2/pkg/models"
	"github.com/google/osv-scanner/v2/pkg/osvscanner"
	"github.com/ossf/osv-schema/bindings/go/osvschema"
	cvss "github.com/pandatix/go-cvss/31"
)

// Severity is the unified bucket a vulnerability lands in.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityUnknown  Severity = "unknown"
)

// Finding is one known vulnerability in an installed dependency.
type Finding struct {
	ID       string   `json:"id"`
	Package  string   `json:"package"`
	Version  string   `json:"version"`
	Severity Severity `json:"severity"`
	Fixed    string   `json:"fixed,omitempty"`
	Summary  string   `json:"summary"`
}

type Scanner struct {
	projectPath string
}

func NewScanner(projectPath string) *Scanner {
	return &Scanner{
		projectPath: projectPath,
	}
}

// Scan runs osv-scanner over the project directory and normalizes the
// results. DoScan reports "vulnerabilities found" through its error in some
// configurations, so the error is surfaced as a progress line and the
// results are read regardless.
func (s *Scanner) Scan(ctx context.Context) ([]Finding, error) {
	actions := osvscanner.ScannerActions{
		DirectoryPaths: []string{s.projectPath},
		Recursive:      true,
	}

	results, err := osvscanner.DoScan(actions)
	if err != nil {
		fmt.Printf("Warning: dependency scan: %v\n", err)
	}

	return FromOSV(results), nil
}

// FromOSV flattens osv-scanner results into findings.
func FromOSV(results models.VulnerabilityResults) []Finding {
	var out []Finding
	for _, r := range results.Results {
		for _, pkg := range r.Packages {
			for _, vuln := range pkg.Vulnerabilities {
				out = append(out, Finding{
					ID:       vuln.ID,
					Package:  pkg.Package.Name,
					Version:  pkg.Package.Version,
					Severity: normalizeSeverity(&vuln),
					Fixed:    fixedVersion(&vuln, pkg.Package.Name),
					Summary:  firstNonEmpty(vuln.Summary, vuln.ID),
				})
			}
		}
	}
	return out
}

// normalizeSeverity prefers the database-provided label and falls back to
// the best CVSS v3 base score in the record.
func normalizeSeverity(v *osvschema.Vulnerability) Severity {
	if label, ok := databaseSeverity(v); ok {
		return normalizeLabel(label)
	}

	best := 0.0
	for _, s := range v.Severity {
		vec := strings.TrimSpace(s.Score)
		if !strings.HasPrefix(strings.ToUpper(vec), "CVSS:3.") {
			continue
		}
		parsed, err := cvss.ParseVector(vec)
		if err != nil {
			continue
		}
		if score := parsed.BaseScore(); score > best {
			best = score
		}
	}
	if best > 0 {
		return severityFromScore(best)
	}
	return SeverityUnknown
}

func severityFromScore(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	case score > 0.0:
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// normalizeLabel maps coarse database labels (like MODERATE) to buckets.
func normalizeLabel(label string) Severity {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "CRITICAL":
		return SeverityCritical
	case "HIGH":
		return SeverityHigh
	case "MEDIUM", "MODERATE":
		return SeverityMedium
	case "LOW":
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

func databaseSeverity(v *osvschema.Vulnerability) (string, bool) {
	if v.DatabaseSpecific == nil {
		return "", false
	}
	f, ok := v.DatabaseSpecific["severity"]
	if !ok || f == nil {
		return "", false
	}
	if sv, ok := f.(string); ok && sv != "" {
		return sv, true
	}
	return "", false
}

// fixedVersion returns the first fixed release listed for the package, or ""
// when none is known.
func fixedVersion(v *osvschema.Vulnerability, pkgName string) string {
	for _, a := range v.Affected {
		if a.Package.Name != pkgName {
			continue
		}
		for _, r := range a.Ranges {
			for _, e := range r.Events {
				if e.Fixed != "" {
					return e.Fixed
				}
			}
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
