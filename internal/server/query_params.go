package server

import "time"

const dateOnlyLayout = "2006-01-02"

// parseOptionalTime accepts RFC 3339 timestamps or bare dates. Empty input
// means the caller wants the default (usually "now").
func parseOptionalTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}

	t, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func parseOptionalDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}
