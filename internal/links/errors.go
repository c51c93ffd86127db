package links

import (
	"fmt"
	"sort"
	"strings"
)

// DuplicateSlugError is returned when a slug is already taken.
type DuplicateSlugError struct {
	Slug string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("slug already in use: %s", e.Slug)
}

// NewDuplicateSlugError creates a new DuplicateSlugError
func NewDuplicateSlugError(slug string) *DuplicateSlugError {
	return &DuplicateSlugError{Slug: slug}
}

// LinkNotFoundError represents a lookup by id or slug that matched nothing.
type LinkNotFoundError struct {
	ID   uint
	Slug string
}

func (e *LinkNotFoundError) Error() string {
	if e.Slug != "" {
		return fmt.Sprintf("link not found for slug: %s", e.Slug)
	}
	return fmt.Sprintf("link not found for id: %d", e.ID)
}

// ValidationError reports user-correctable input problems on create or update.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ResetError lists the link ids whose clicks could not be reset.
type ResetError struct {
	Failed map[uint]error
}

func (e *ResetError) Error() string {
	ids := e.FailedIDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d: %v", id, e.Failed[id])
	}
	return fmt.Sprintf("failed to reset clicks for %d link(s): %s", len(ids), strings.Join(parts, "; "))
}

// FailedIDs returns the failed ids in ascending order.
func (e *ResetError) FailedIDs() []uint {
	ids := make([]uint, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
