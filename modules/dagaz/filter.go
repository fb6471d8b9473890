package dagaz

import "slices"

// DefaultExcludedTag is the tag of the entities ignored by default.
const DefaultExcludedTag = "background"

// Filter selects the entities tracked by a module from their tags.
type Filter struct {
	// The tags an entity must all have. Empty matches every entity.
	Required []string

	// The tags an entity must not have.
	Excluded []string
}

// DefaultFilter returns a filter excluding background entities.
func DefaultFilter() Filter {
	return Filter{Excluded: []string{DefaultExcludedTag}}
}

// Match reports whether an entity with the given tags is tracked.
func (f Filter) Match(tags []string) bool {
	for _, t := range f.Required {
		if !slices.Contains(tags, t) {
			return false
		}
	}

	for _, t := range f.Excluded {
		if slices.Contains(tags, t) {
			return false
		}
	}
	return true
}
