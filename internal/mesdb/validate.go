package mesdb

import (
	"fmt"
	"regexp"
	"strings"
)

var modifyingKeywords = regexp.MustCompile(`(?i)\b(drop|delete|truncate|alter|create|insert|update)\b`)

// ValidateQuery rejects anything that is not a plain read. Modifying
// statements are blocked by keyword before they reach the database, and only
// SELECT or WITH entry points are accepted.
func ValidateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("validation: query cannot be empty")
	}

	if m := modifyingKeywords.FindString(trimmed); m != "" {
		return fmt.Errorf("validation: modifying operations are not allowed (%s); use SELECT queries only", strings.ToLower(m))
	}

	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return fmt.Errorf("validation: only SELECT queries are allowed")
	}
	return nil
}
