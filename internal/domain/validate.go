package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Input limits enforced before any evaluation work happens.
const (
	MaxUserIDLength         = 256
	MaxFlagKeyLength        = 128
	MaxAttributeNameLength  = 128
	MaxAttributeValueLength = 1024
)

// ValidateUserID trims and validates a caller-supplied user identifier.
func ValidateUserID(userID string) (string, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return "", NewValidationError("user ID cannot be empty")
	}
	if len(trimmed) > MaxUserIDLength {
		return "", NewValidationError(
			fmt.Sprintf("user ID exceeds %d characters", MaxUserIDLength),
		)
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", NewValidationError("user ID contains control characters")
		}
	}
	return trimmed, nil
}

// ValidateFlagKey trims and validates a flag key. Keys are restricted to
// alphanumerics, underscore and hyphen.
func ValidateFlagKey(flagKey string) (string, error) {
	trimmed := strings.TrimSpace(flagKey)
	if trimmed == "" {
		return "", NewValidationError("flag key cannot be empty")
	}
	if len(trimmed) > MaxFlagKeyLength {
		return "", NewValidationError(
			fmt.Sprintf("flag key exceeds %d characters", MaxFlagKeyLength),
		)
	}
	for _, r := range trimmed {
		if !isFlagKeyRune(r) {
			return "", NewValidationError(
				fmt.Sprintf("flag key contains invalid character %q", r),
			)
		}
	}
	return trimmed, nil
}

func isFlagKeyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}

// SanitizeSegments drops unusable attributes from a caller-supplied segment
// map: empty or oversized names, oversized string values. The input map is
// never mutated.
func SanitizeSegments(segments map[string]any) map[string]any {
	if len(segments) == 0 {
		return nil
	}

	out := make(map[string]any, len(segments))
	for name, value := range segments {
		name = strings.TrimSpace(name)
		if name == "" || len(name) > MaxAttributeNameLength {
			continue
		}
		if s, ok := value.(string); ok && len(s) > MaxAttributeValueLength {
			continue
		}
		out[name] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
