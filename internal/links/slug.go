package links

import (
	"regexp"
	"strings"

	"github.com/lithammer/shortuuid/v4"
)

const (
	slugBaseMaxLength = 8
	slugSuffixLength  = 4
	slugAlphabet      = "0123456789abcdefghijklmnopqrstuvwxyz"
	fallbackSlugBase  = "link"
)

var customSlugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)

// Slugs that would shadow application routes.
var reservedSlugs = map[string]bool{
	"api":     true,
	"admin":   true,
	"r":       true,
	"l":       true,
	"x":       true,
	"metrics": true,
	"_health": true,
}

// GenerateSlug returns customSlug trimmed when given, otherwise a code derived
// from the title plus a random base-36 suffix. Uniqueness is not guaranteed;
// the store rejects collisions.
func GenerateSlug(title, customSlug string) string {
	if custom := strings.TrimSpace(customSlug); custom != "" {
		return custom
	}
	return slugBase(title) + randomSuffix(slugSuffixLength)
}

func slugBase(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == slugBaseMaxLength {
				break
			}
		}
	}
	if b.Len() == 0 {
		return fallbackSlugBase
	}
	return b.String()
}

func randomSuffix(n int) string {
	id := shortuuid.NewWithAlphabet(slugAlphabet)
	if len(id) < n {
		return id
	}
	return id[len(id)-n:]
}

// ValidateCustomSlug checks a user supplied slug before it reaches the store.
func ValidateCustomSlug(slug string) error {
	if !customSlugPattern.MatchString(slug) {
		return &ValidationError{Field: "slug", Value: slug, Reason: "must be 1-50 letters, digits, '-' or '_'"}
	}
	if reservedSlugs[strings.ToLower(slug)] {
		return &ValidationError{Field: "slug", Value: slug, Reason: "reserved"}
	}
	return nil
}
