package simulations

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/weatherstream-labs/weatherstream-go/internal/domain"
)

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &domain.ValidationError{Field: "Name", Message: "must not be blank"}
	}
	if len(name) > domain.MaxNameLength {
		return &domain.ValidationError{
			Field:   "Name",
			Message: fmt.Sprintf("must not exceed %d characters", domain.MaxNameLength),
		}
	}
	return nil
}

// parseStartTime accepts an ISO-8601 timestamp, assumes UTC when no zone
// is given, and requires the instant to lie strictly in the future at
// second precision.
func parseStartTime(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &domain.ValidationError{Field: "StartTime", Message: "must not be blank"}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.ParseInLocation("2006-01-02T15:04:05", raw, time.UTC)
		if err != nil {
			return time.Time{}, &domain.ValidationError{Field: "StartTime", Message: "must be a valid ISO-8601 timestamp"}
		}
	}
	t = t.UTC().Truncate(time.Second)
	if !t.After(now.UTC().Truncate(time.Second)) {
		return time.Time{}, &domain.ValidationError{Field: "StartTime", Message: "must be in the future"}
	}
	return t, nil
}

func validateDataSource(name string) error {
	if strings.TrimSpace(name) == "" {
		return &domain.ValidationError{Field: "DataSource", Message: "must not be blank"}
	}
	if len(name) > domain.MaxFileNameLength {
		return &domain.ValidationError{
			Field:   "DataSource",
			Message: fmt.Sprintf("must not exceed %d characters", domain.MaxFileNameLength),
		}
	}
	base := baseName(name)
	if base == "" {
		return &domain.ValidationError{Field: "DataSource", Message: "must name a file"}
	}
	if unicode.IsDigit(rune(base[0])) {
		return &domain.ValidationError{Field: "DataSource", Message: "file name must not start with a digit"}
	}
	for _, r := range name {
		if !isDataSourceRune(r) {
			return &domain.ValidationError{
				Field:   "DataSource",
				Message: fmt.Sprintf("contains forbidden character %q", r),
			}
		}
	}
	return nil
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func isDataSourceRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ' ', r == '-', r == '_', r == '.', r == '\\', r == '/', r == ':':
		return true
	}
	return false
}
