package shared

import "time"

const DateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or RFC3339. An empty value yields the zero time.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(DateLayout, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}

// ParseOptionalDate returns nil for an empty value.
func ParseOptionalDate(value string) (*time.Time, error) {
	parsed, err := ParseDate(value)
	if err != nil || parsed.IsZero() {
		return nil, err
	}
	return &parsed, nil
}
