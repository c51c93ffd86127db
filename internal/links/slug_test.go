package links_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"linkbio/internal/links"
)

var generatedSlug = regexp.MustCompile(`^[a-z0-9]{1,8}[a-z0-9]{4}$`)

func TestGenerateSlug(t *testing.T) {
	t.Run("custom slug is returned trimmed", func(t *testing.T) {
		assert.Equal(t, "summer-sale", links.GenerateSlug("Anything", "  summer-sale "))
	})

	t.Run("title drives the base", func(t *testing.T) {
		slug := links.GenerateSlug("My Promo!", "")
		assert.Regexp(t, `^mypromo[a-z0-9]{4}$`, slug)
	})

	t.Run("base is truncated", func(t *testing.T) {
		slug := links.GenerateSlug("A very long campaign title", "")
		assert.Len(t, slug, 12)
		assert.Equal(t, "averylon", slug[:8])
	})

	t.Run("empty title falls back", func(t *testing.T) {
		slug := links.GenerateSlug("   ", "")
		assert.Regexp(t, `^link[a-z0-9]{4}$`, slug)
	})

	t.Run("non latin title falls back", func(t *testing.T) {
		slug := links.GenerateSlug("日本語", "")
		assert.Regexp(t, `^link[a-z0-9]{4}$`, slug)
	})

	t.Run("generated slugs vary", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			slug := links.GenerateSlug("promo", "")
			assert.Regexp(t, generatedSlug, slug)
			seen[slug] = true
		}
		assert.Greater(t, len(seen), 1)
	})
}

func TestValidateCustomSlug(t *testing.T) {
	valid := []string{"promo", "Summer_2024", "a", "x-y-z"}
	for _, slug := range valid {
		assert.NoError(t, links.ValidateCustomSlug(slug), slug)
	}

	invalid := []string{"", "has space", "slash/slug", "emoji🙂", "api", "Metrics", "_health"}
	for _, slug := range invalid {
		err := links.ValidateCustomSlug(slug)
		var validationErr *links.ValidationError
		assert.ErrorAs(t, err, &validationErr, slug)
	}
}
