package restore

import (
	"fmt"
	"strings"

	"storefront/internal/domain"
)

// OutputFormatError reports a model output that is not a URL, a list of
// URLs or an object with a url field.
type OutputFormatError struct {
	Output any
}

func (e *OutputFormatError) Error() string {
	return fmt.Sprintf("%s: %T", domain.ErrUnrecognizedOutput.Error(), e.Output)
}

func (e *OutputFormatError) Unwrap() error { return domain.ErrUnrecognizedOutput }

// NormalizeOutput reduces a model output to a single image URL.
func NormalizeOutput(output any) (string, error) {
	switch v := output.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return v, nil
		}
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok && strings.TrimSpace(s) != "" {
				return s, nil
			}
		}
	case []string:
		if len(v) > 0 && strings.TrimSpace(v[0]) != "" {
			return v[0], nil
		}
	case map[string]any:
		if s, ok := v["url"].(string); ok && strings.TrimSpace(s) != "" {
			return s, nil
		}
	}
	return "", &OutputFormatError{Output: output}
}
