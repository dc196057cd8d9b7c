package domain

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ServiceTag names a restoration service a customer can pick.
type ServiceTag string

const (
	ServiceRepair   ServiceTag = "repair"
	ServiceColorize ServiceTag = "colorize"
	ServiceEnhance  ServiceTag = "enhance"
	ServiceDamage   ServiceTag = "damage"
)

var serviceLabels = map[ServiceTag]string{
	ServiceRepair:   "Photo Restoration",
	ServiceColorize: "Colorization",
	ServiceEnhance:  "Quality Enhancement",
	ServiceDamage:   "Damage Repair",
}

// Label returns the customer-facing name of a service. Unknown tags are
// title-cased instead of rejected so new client options still render.
func (s ServiceTag) Label() string {
	if label, ok := serviceLabels[s]; ok {
		return label
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(s), "_", " "))
}

// Services is an ordered set of tags as picked by the client.
type Services []ServiceTag

// Has reports whether tag is selected.
func (s Services) Has(tag ServiceTag) bool {
	for _, t := range s {
		if t == tag {
			return true
		}
	}
	return false
}

// Labels returns the display labels in selection order.
func (s Services) Labels() []string {
	out := make([]string, 0, len(s))
	for _, t := range s {
		out = append(out, t.Label())
	}
	return out
}

// Strings returns the raw tags.
func (s Services) Strings() []string {
	out := make([]string, 0, len(s))
	for _, t := range s {
		out = append(out, string(t))
	}
	return out
}

// ParseServices decodes the JSON array the client sends in multipart forms.
// An empty value yields an empty set.
func ParseServices(raw string) (Services, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Services{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, Invalid("services must be a JSON array of strings")
	}
	return NewServices(tags), nil
}

// NewServices normalizes raw tags, dropping blanks and duplicates.
func NewServices(tags []string) Services {
	out := make(Services, 0, len(tags))
	seen := make(map[ServiceTag]struct{}, len(tags))
	for _, tag := range tags {
		t := ServiceTag(strings.ToLower(strings.TrimSpace(tag)))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
