// Package resolution maps observed tenant strings ("Mamoun's Falafel",
// "Met Mkt Sand Point") onto canonical entities. Matching is deterministic
// for a given alias state and never guesses: a best candidate that cannot
// clear both the acceptance threshold and the ambiguity margin is returned
// as an error carrying the competing candidates instead of a match.
package resolution

import (
	"sort"

	"github.com/google/uuid"
)

// Default matching parameters. Tuned against the seeded vendor names so
// that one-token abbreviations ("Market" -> "Mkt") still clear the bar
// while names sharing only a common word do not.
const (
	DefaultAcceptThreshold = 0.72
	DefaultAmbiguityMargin = 0.08
)

// Near misses below the acceptance threshold are still attached to
// UnresolvedError so reviewers see what the matcher considered.
const (
	shortlistSize  = 3
	shortlistFloor = 0.5
)

// Config carries the matcher thresholds. Zero values fall back to the
// defaults, so Config{} is usable as-is.
type Config struct {
	// AcceptThreshold is the minimum blended score a candidate needs
	// to be considered a match at all.
	AcceptThreshold float64
	// AmbiguityMargin is the minimum lead the best candidate needs
	// over the runner-up from a different entity. A closer race is
	// ambiguous and goes to review.
	AmbiguityMargin float64
}

// DefaultConfig returns the default matcher thresholds
func DefaultConfig() Config {
	return Config{
		AcceptThreshold: DefaultAcceptThreshold,
		AmbiguityMargin: DefaultAmbiguityMargin,
	}
}

func (c Config) withDefaults() Config {
	if c.AcceptThreshold <= 0 {
		c.AcceptThreshold = DefaultAcceptThreshold
	}
	if c.AmbiguityMargin <= 0 {
		c.AmbiguityMargin = DefaultAmbiguityMargin
	}
	return c
}

// Entry is one searchable string (a canonical name or a recorded alias)
// pointing at the entity that owns it. An entity contributes one entry
// per distinct string it is known by.
type Entry struct {
	EntityID   uuid.UUID
	Value      string
	Normalized string
}

// NewEntry builds an entry for a canonical name or alias, computing its
// normalized matching form
func NewEntry(entityID uuid.UUID, value string) Entry {
	return Entry{
		EntityID:   entityID,
		Value:      value,
		Normalized: Normalize(value),
	}
}

// Candidate is one scored entity. Value is the name or alias string that
// produced the score; Score is 1.0 for an exact normalized match.
type Candidate struct {
	EntityID uuid.UUID `json:"entity_id"`
	Value    string    `json:"value"`
	Score    float64   `json:"score"`
}

// Matcher scores an observed string against a set of entries and decides
// match, no match, or too-close-to-call. It holds no state beyond its
// thresholds and is safe for concurrent use.
type Matcher struct {
	cfg Config
}

// NewMatcher creates a matcher, filling unset thresholds with defaults
func NewMatcher(cfg Config) *Matcher {
	return &Matcher{cfg: cfg.withDefaults()}
}

// Match resolves an observed string against the given entries.
//
// The normalized observed string is first checked for exact equality with
// entry normalized forms (confidence 1.0). Otherwise every entity is
// scored by its best-scoring entry and the strongest candidate wins iff
// it clears AcceptThreshold and leads the runner-up by AmbiguityMargin.
//
// Failure modes: *UnresolvedError when nothing clears the threshold (or
// the observed string normalizes to nothing), *AmbiguousError when two or
// more entities are too close to call - including two entities that both
// own the observed string exactly. Both unwrap to the package sentinels.
func (m *Matcher) Match(observed string, entries []Entry) (*Candidate, error) {
	normalized := Normalize(observed)
	if normalized == "" {
		return nil, &UnresolvedError{Observed: observed}
	}

	exact := exactCandidates(normalized, entries)
	if len(exact) == 1 {
		return &exact[0], nil
	}
	if len(exact) > 1 {
		return nil, &AmbiguousError{Observed: observed, Candidates: exact}
	}

	candidates := scoreEntities(normalized, entries)
	if len(candidates) == 0 || candidates[0].Score < m.cfg.AcceptThreshold {
		return nil, &UnresolvedError{Observed: observed, Candidates: shortlist(candidates)}
	}

	if len(candidates) > 1 && candidates[0].Score-candidates[1].Score < m.cfg.AmbiguityMargin {
		competing := make([]Candidate, 0, len(candidates))
		for _, c := range candidates {
			if candidates[0].Score-c.Score < m.cfg.AmbiguityMargin {
				competing = append(competing, c)
			}
		}
		return nil, &AmbiguousError{Observed: observed, Candidates: competing}
	}

	best := candidates[0]
	return &best, nil
}

// exactCandidates returns one confidence-1.0 candidate per distinct
// entity whose entry normalizes to exactly the observed form
func exactCandidates(normalized string, entries []Entry) []Candidate {
	var exact []Candidate
	seen := make(map[uuid.UUID]struct{})
	for _, e := range entries {
		if e.Normalized != normalized {
			continue
		}
		if _, dup := seen[e.EntityID]; dup {
			continue
		}
		seen[e.EntityID] = struct{}{}
		exact = append(exact, Candidate{EntityID: e.EntityID, Value: e.Value, Score: 1.0})
	}
	sortCandidates(exact)
	return exact
}

// scoreEntities scores every entity by its best entry and returns the
// candidates strongest first. Scoring per entity, not per entry, keeps an
// entity's own aliases from tripping the ambiguity margin against each
// other.
func scoreEntities(normalized string, entries []Entry) []Candidate {
	best := make(map[uuid.UUID]Candidate)
	for _, e := range entries {
		score := Similarity(normalized, e.Normalized)
		if cur, ok := best[e.EntityID]; !ok || score > cur.Score {
			best[e.EntityID] = Candidate{EntityID: e.EntityID, Value: e.Value, Score: score}
		}
	}

	candidates := make([]Candidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sortCandidates(candidates)
	return candidates
}

// sortCandidates orders by score descending with value then entity ID as
// tie-breakers, so results do not depend on map iteration order
func sortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Value != candidates[j].Value {
			return candidates[i].Value < candidates[j].Value
		}
		return candidates[i].EntityID.String() < candidates[j].EntityID.String()
	})
}

func shortlist(candidates []Candidate) []Candidate {
	var near []Candidate
	for _, c := range candidates {
		if c.Score < shortlistFloor || len(near) == shortlistSize {
			break
		}
		near = append(near, c)
	}
	return near
}
