package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

var ErrTitleRequired = errors.New("title is required")

// ValidateTitle trims title and checks it is present and not too long.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", ErrTitleRequired
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLength {
		return "", fmt.Errorf("title is too long (max %d characters)", MaxTitleLength)
	}
	return trimmed, nil
}

func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("description is too long (max %d characters)", MaxDescriptionLength)
	}
	return nil
}
