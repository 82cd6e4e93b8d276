package deps

import (
	"testing"

	"github.com/google/osv-scanner/v2/pkg/models"
	"github.com/ossf/osv-schema/bindings/go/osvschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityFromScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  Severity
	}{
		{"critical at 9.8", 9.8, SeverityCritical},
		{"critical boundary", 9.0, SeverityCritical},
		{"high", 7.5, SeverityHigh},
		{"medium", 5.3, SeverityMedium},
		{"low", 2.1, SeverityLow},
		{"zero is unknown", 0, SeverityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, severityFromScore(tt.score))
		})
	}
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, SeverityCritical, normalizeLabel("CRITICAL"))
	assert.Equal(t, SeverityMedium, normalizeLabel("moderate"), "GitHub-style MODERATE maps to medium")
	assert.Equal(t, SeverityLow, normalizeLabel(" low "))
	assert.Equal(t, SeverityUnknown, normalizeLabel("whatever"))
}

func TestNormalizeSeverity(t *testing.T) {
	t.Run("database label wins over vectors", func(t *testing.T) {
		v := &osvschema.Vulnerability{
			DatabaseSpecific: map[string]interface{}{"severity": "HIGH"},
			Severity: []osvschema.Severity{
				{Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"},
			},
		}
		assert.Equal(t, SeverityHigh, normalizeSeverity(v))
	})

	t.Run("falls back to best cvss v3 vector", func(t *testing.T) {
		v := &osvschema.Vulnerability{
			Severity: []osvschema.Severity{
				{Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:R/S:U/C:L/I:L/A:N"},
				{Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"},
			},
		}
		assert.Equal(t, SeverityCritical, normalizeSeverity(v))
	})

	t.Run("no usable severity", func(t *testing.T) {
		v := &osvschema.Vulnerability{
			Severity: []osvschema.Severity{{Score: "not-a-vector"}},
		}
		assert.Equal(t, SeverityUnknown, normalizeSeverity(v))
	})
}

func TestFixedVersion(t *testing.T) {
	v := &osvschema.Vulnerability{
		Affected: []osvschema.Affected{
			{
				Package: osvschema.Package{Name: "other-package"},
				Ranges: []osvschema.Range{
					{Events: []osvschema.Event{{Fixed: "9.9.9"}}},
				},
			},
			{
				Package: osvschema.Package{Name: "aiogram"},
				Ranges: []osvschema.Range{
					{Events: []osvschema.Event{{Introduced: "0"}, {Fixed: "3.0.0"}}},
				},
			},
		},
	}

	assert.Equal(t, "3.0.0", fixedVersion(v, "aiogram"), "must match the package, not the first range")
	assert.Equal(t, "", fixedVersion(v, "requests"))
}

func TestFromOSV(t *testing.T) {
	results := models.VulnerabilityResults{
		Results: []models.PackageSource{
			{
				Packages: []models.PackageVulns{
					{
						Package: models.PackageInfo{Name: "aiogram", Version: "2.25.1"},
						Vulnerabilities: []osvschema.Vulnerability{
							{
								ID:      "GHSA-xxxx-yyyy-zzzz",
								Summary: "Token leak via debug logging",
								Severity: []osvschema.Severity{
									{Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"},
								},
								Affected: []osvschema.Affected{
									{
										Package: osvschema.Package{Name: "aiogram"},
										Ranges: []osvschema.Range{
											{Events: []osvschema.Event{{Fixed: "3.0.0"}}},
										},
									},
								},
							},
							{
								// No summary: the ID doubles as one.
								ID: "PYSEC-2024-0001",
							},
						},
					},
				},
			},
		},
	}

	findings := FromOSV(results)
	require.Len(t, findings, 2)

	assert.Equal(t, Finding{
		ID:       "GHSA-xxxx-yyyy-zzzz",
		Package:  "aiogram",
		Version:  "2.25.1",
		Severity: SeverityCritical,
		Fixed:    "3.0.0",
		Summary:  "Token leak via debug logging",
	}, findings[0])

	assert.Equal(t, "PYSEC-2024-0001", findings[1].Summary)
	assert.Equal(t, SeverityUnknown, findings[1].Severity)
	assert.Equal(t, "", findings[1].Fixed)
}

func TestFromOSV_Empty(t *testing.T) {
	assert.Empty(t, FromOSV(models.VulnerabilityResults{}))
}
