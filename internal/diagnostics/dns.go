// Package diagnostics checks that the sending domain is set up for the
// email provider.
package diagnostics

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// Resolver is the DNS subset used by the checker. *net.Resolver satisfies it.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// Check is the result of one expected record.
type Check struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Expected    string   `json:"expected"`
	Status      string   `json:"status"`
	Found       []string `json:"found"`
	Message     string   `json:"message"`
	Error       string   `json:"error,omitempty"`
}

// Summary counts check results.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Report is the full DNS check for one domain.
type Report struct {
	Domain          string    `json:"domain"`
	Timestamp       time.Time `json:"timestamp"`
	Checks          []Check   `json:"checks"`
	Summary         Summary   `json:"summary"`
	Recommendations []string  `json:"recommendations"`
}

type expectation struct {
	kind        string
	name        string
	description string
	expected    string
	label       string
	match       func(string) bool
}

// DNSChecker verifies the MX, SPF, DKIM and DMARC records the email provider
// relies on.
type DNSChecker struct {
	Resolver Resolver
	Domain   string
	Now      func() time.Time
}

// NewDNSChecker uses the system resolver.
func NewDNSChecker(domain string) *DNSChecker {
	return &DNSChecker{Resolver: net.DefaultResolver, Domain: domain, Now: time.Now}
}

func (c *DNSChecker) expectations() []expectation {
	d := c.Domain
	return []expectation{
		{
			kind: "MX", name: "send." + d, label: "AWS SES mail server",
			description: "Mail exchange record for sending emails",
			expected:    "feedback-smtp.us-east-1.amazonses.com",
			match:       func(v string) bool { return strings.Contains(v, "amazonses.com") },
		},
		{
			kind: "TXT", name: "send." + d, label: "SPF record",
			description: "SPF record for email authentication",
			expected:    "v=spf1 include:amazonses.com",
			match: func(v string) bool {
				return strings.Contains(v, "v=spf1") && strings.Contains(v, "amazonses.com")
			},
		},
		{
			kind: "TXT", name: "resend._domainkey." + d, label: "DKIM record",
			description: "DKIM record for email signing",
			expected:    "p=MIGf (DKIM public key)",
			match:       func(v string) bool { return strings.Contains(v, "p=MIGf") },
		},
		{
			kind: "TXT", name: "_dmarc." + d, label: "DMARC record",
			description: "DMARC policy record",
			expected:    "v=DMARC1; p=none;",
			match:       func(v string) bool { return strings.Contains(v, "v=DMARC1") },
		},
	}
}

// Check runs every lookup. Lookup errors fail the individual check and
// never abort the report.
func (c *DNSChecker) Check(ctx context.Context) *Report {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	report := &Report{Domain: c.Domain, Timestamp: now().UTC()}
	for _, exp := range c.expectations() {
		check := c.run(ctx, exp)
		report.Checks = append(report.Checks, check)
		report.Summary.Total++
		if check.Status == StatusPass {
			report.Summary.Passed++
		} else {
			report.Summary.Failed++
		}
	}
	if report.Summary.Failed > 0 {
		report.Recommendations = []string{
			"Add missing DNS records to your domain provider",
			"Wait 1-4 hours for DNS propagation",
			"Use the provider's default sender (onboarding@resend.dev) as an alternative",
		}
	} else {
		report.Recommendations = []string{
			"All DNS records look good!",
			"Check the email provider dashboard for verification status",
		}
	}
	return report
}

func (c *DNSChecker) run(ctx context.Context, exp expectation) Check {
	check := Check{
		Type:        exp.kind,
		Name:        exp.name,
		Description: exp.description,
		Expected:    exp.expected,
		Status:      StatusFail,
		Found:       []string{},
	}

	var err error
	switch exp.kind {
	case "MX":
		var records []*net.MX
		records, err = c.Resolver.LookupMX(ctx, exp.name)
		for _, r := range records {
			check.Found = append(check.Found, fmt.Sprintf("%d %s", r.Pref, strings.TrimSuffix(r.Host, ".")))
		}
	default:
		check.Found, err = c.Resolver.LookupTXT(ctx, exp.name)
		if check.Found == nil {
			check.Found = []string{}
		}
	}
	if err != nil {
		check.Message = fmt.Sprintf("No %s records found", exp.kind)
		check.Error = err.Error()
		return check
	}

	for _, v := range check.Found {
		if exp.match(v) {
			check.Status = StatusPass
			break
		}
	}
	if check.Status == StatusPass {
		check.Message = exp.label + " found"
	} else {
		check.Message = exp.label + " missing or incorrect"
	}
	return check
}
