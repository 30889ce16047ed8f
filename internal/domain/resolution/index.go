package resolution

import "github.com/google/uuid"

// Index is the in-memory set of searchable strings for one entity kind
// (all account names + aliases, or all product names + aliases) with a
// matcher over it.
//
// It is not safe for concurrent use: the resolver worker owns it. Runs
// stage their alias gains on a Clone and the service folds the staged
// gains into the live index on commit, so an aborted run leaves the live
// index untouched.
type Index struct {
	matcher *Matcher
	entries []Entry
	owners  map[string]map[uuid.UUID]struct{} // normalized form -> owning entities
}

// NewIndex creates an empty index with the given matcher thresholds
func NewIndex(cfg Config) *Index {
	return &Index{
		matcher: NewMatcher(cfg),
		entries: make([]Entry, 0),
		owners:  make(map[string]map[uuid.UUID]struct{}),
	}
}

// Add registers a name or alias for an entity. It returns false without
// modifying the index when the value normalizes to nothing or the entity
// already owns that normalized form, so callers can use the return to
// decide whether a new alias is worth persisting.
func (ix *Index) Add(entityID uuid.UUID, value string) bool {
	entry := NewEntry(entityID, value)
	if entry.Normalized == "" {
		return false
	}

	holders := ix.owners[entry.Normalized]
	if _, dup := holders[entityID]; dup {
		return false
	}
	if holders == nil {
		holders = make(map[uuid.UUID]struct{})
		ix.owners[entry.Normalized] = holders
	}
	holders[entityID] = struct{}{}
	ix.entries = append(ix.entries, entry)
	return true
}

// Resolve matches an observed string against everything in the index
func (ix *Index) Resolve(observed string) (*Candidate, error) {
	return ix.matcher.Match(observed, ix.entries)
}

// Entries returns a copy of the index contents
func (ix *Index) Entries() []Entry {
	out := make([]Entry, len(ix.entries))
	copy(out, ix.entries)
	return out
}

// Len returns the number of distinct searchable strings in the index
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Clone returns an independent copy sharing nothing with the original
func (ix *Index) Clone() *Index {
	clone := &Index{
		matcher: ix.matcher,
		entries: make([]Entry, len(ix.entries)),
		owners:  make(map[string]map[uuid.UUID]struct{}, len(ix.owners)),
	}
	copy(clone.entries, ix.entries)
	for normalized, holders := range ix.owners {
		set := make(map[uuid.UUID]struct{}, len(holders))
		for id := range holders {
			set[id] = struct{}{}
		}
		clone.owners[normalized] = set
	}
	return clone
}
