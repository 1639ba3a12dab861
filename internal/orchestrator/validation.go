package orchestrator

import (
	"fmt"
	"regexp"
	"strings"
)

var tagNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._/+-]+$`)

// ValidateTagName checks that tag is a well-formed git ref name component.
func ValidateTagName(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag name cannot be empty")
	}
	if len(tag) > 255 {
		return fmt.Errorf("tag name too long: %d characters (max: 255)", len(tag))
	}
	if strings.HasPrefix(tag, "-") || strings.HasPrefix(tag, "/") || strings.HasSuffix(tag, "/") {
		return fmt.Errorf("tag name cannot start with dash or slash, or end with slash: %s", tag)
	}
	if strings.Contains(tag, "..") || strings.Contains(tag, "//") {
		return fmt.Errorf("tag name cannot contain consecutive dots or slashes: %s", tag)
	}
	if strings.HasSuffix(tag, ".lock") || strings.HasSuffix(tag, ".") {
		return fmt.Errorf("tag name cannot end with .lock or a dot: %s", tag)
	}
	if !tagNameRegex.MatchString(tag) {
		return fmt.Errorf("invalid tag name format: %s", tag)
	}
	return nil
}
