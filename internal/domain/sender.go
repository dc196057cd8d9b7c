package domain

// SenderDomain is a sending domain registered with the email provider.
type SenderDomain struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Region  string         `json:"region,omitempty"`
	Records []DomainRecord `json:"records"`
}

// DomainRecord is one DNS record the provider expects to find.
type DomainRecord struct {
	Record string `json:"record"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	TTL    string `json:"ttl,omitempty"`
	Status string `json:"status"`
	Value  string `json:"value"`
}
