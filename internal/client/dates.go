package client

import (
	"fmt"
	"strings"
	"time"
)

const backendDateLayout = "02-01-2006"

// FormatBackendDate converts an ISO date (2006-01-02, optionally with a time part) into the
// dd-MM-yyyy form the product endpoints expect. An empty input yields "".
func FormatBackendDate(iso string) (string, error) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return "", nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.Format(backendDateLayout), nil
		}
	}
	return "", fmt.Errorf("invalid date %q", iso)
}

// ParseBackendDate keeps only the YYYY-MM-DD part of a date returned by the backend.
func ParseBackendDate(s string) string {
	date, _, _ := strings.Cut(strings.TrimSpace(s), "T")
	return date
}
