// Package validation provides query-input validation for the registry API.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/NikSht/help-drugix/interfaces"
)

// Pre-compiled regex patterns for performance optimization
// Compiled once at package initialization and reused for all validations
var (
	// Product ids are upstream registry codes: alphanumerics plus the
	// separators seen in KLP codes.
	productIDRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-]+$`)

	// Search input: letters (Latin and Cyrillic), digits, and safe punctuation.
	searchRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-\.\+'а-яА-ЯёЁ№%]+$`)

	// Dangerous patterns as strings (faster than regex for simple substring matching)
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "onload=", "onerror=",
		"eval(", "expression(", "url(", "@import",
		"' or ", "\" or ", "union select", "drop table", "delete from",
		"insert into", "--", "/*", "*/",
		"; ", "| ", "& ", "`", "$(", "${",
		"../", "..\\", "%2e%2e", "file://",
	}
)

// ValidatorImpl implements the interfaces.DataValidator interface
type ValidatorImpl struct{}

// NewValidator creates a new input validator
func NewValidator() interfaces.DataValidator {
	return &ValidatorImpl{}
}

// ValidateProductID validates a product id path parameter and returns the
// trimmed id.
func (v *ValidatorImpl) ValidateProductID(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("product id cannot be empty")
	}

	// Reject if original input contained whitespace
	if len(input) != len(trimmed) {
		return "", fmt.Errorf("product id contains invalid characters")
	}

	if len(trimmed) > 64 {
		return "", fmt.Errorf("product id too long: maximum 64 characters")
	}

	if !productIDRegex.MatchString(trimmed) {
		return "", fmt.Errorf("product id contains invalid characters. Only letters, digits, dot, underscore and hyphen are allowed")
	}

	return trimmed, nil
}

// ValidateSearchInput validates free-text trade-name search input.
func (v *ValidatorImpl) ValidateSearchInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if len(input) < 3 {
		return fmt.Errorf("input too short: minimum 3 characters")
	}

	if len(input) > 100 {
		return fmt.Errorf("input too long: maximum 100 characters")
	}

	// Word count validation to prevent DoS with many short words
	words := strings.Fields(input)
	if len(words) > 6 {
		return fmt.Errorf("search query too complex: maximum 6 words allowed")
	}

	// Check for potentially dangerous patterns using string matching
	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !searchRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces, hyphens, apostrophes, periods and plus sign are allowed")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// hasExcessiveRepetition checks for potential DoS patterns with excessive
// character repetition
func hasExcessiveRepetition(input string) bool {
	// Same byte repeated more than 10 times consecutively
	for i := 0; i < len(input)-10; i++ {
		allSame := true
		for j := 1; j <= 10; j++ {
			if input[i] != input[i+j] {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}
	return false
}
