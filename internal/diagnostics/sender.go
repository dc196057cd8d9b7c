package diagnostics

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

// DomainLister reads sending domains from the email provider.
// *resend.Client satisfies it.
type DomainLister interface {
	Domains(ctx context.Context) ([]domain.SenderDomain, error)
	Domain(ctx context.Context, id string) (*domain.SenderDomain, error)
}

// SenderDomainReport is the provider's view of the sending domain.
type SenderDomainReport struct {
	Domain           *domain.SenderDomain `json:"domain,omitempty"`
	DKIM             *domain.DomainRecord `json:"dkimRecord,omitempty"`
	AvailableDomains []string             `json:"availableDomains,omitempty"`
	Message          string               `json:"message"`
}

// SenderDomain finds name among the provider's domains and loads its
// records. A missing domain returns domain.ErrNotFound together with a
// report listing what is registered.
func SenderDomain(ctx context.Context, lister DomainLister, name string) (*SenderDomainReport, error) {
	list, err := lister.Domains(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: list sender domains: %w", err)
	}
	report := &SenderDomainReport{}
	var id string
	for _, d := range list {
		report.AvailableDomains = append(report.AvailableDomains, d.Name)
		if d.Name == name {
			id = d.ID
		}
	}
	if id == "" {
		report.Message = fmt.Sprintf("domain %s is not registered with the email provider", name)
		return report, domain.ErrNotFound
	}

	detail, err := lister.Domain(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: load sender domain %s: %w", name, err)
	}
	report.Domain = detail
	report.Message = "Copy these exact values to your DNS provider"
	for i := range detail.Records {
		r := detail.Records[i]
		if r.Name == "resend._domainkey" || r.Record == "DKIM" {
			report.DKIM = &r
			break
		}
	}
	return report, nil
}
