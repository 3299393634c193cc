package core

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// DefaultMaxSuggestions is the number of near matches offered per create row.
const DefaultMaxSuggestions = 3

// maxSuggestDistance bounds the edit distance for near matches that are
// not subsequence matches.
const maxSuggestDistance = 2

// Suggestion is an existing entity whose canonical id is close to, but not
// equal to, a row's canonical id.
type Suggestion struct {
	URN         string `json:"urn"`
	CanonicalID string `json:"canonicalId"`
	Distance    int    `json:"distance"`
}

// Suggester looks up near matches among a snapshot's canonical ids. Build
// one per snapshot; lookups do not modify it.
type Suggester struct {
	ids  []string
	urns []string
}

// NewSuggester indexes the named entities of snap.
func NewSuggester(snap Snapshot) *Suggester {
	s := &Suggester{}
	for _, urn := range snap.URNs() {
		e := snap[urn]
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		id := CanonicalID(e)
		if id == "" {
			continue
		}
		s.ids = append(s.ids, id)
		s.urns = append(s.urns, urn)
	}
	return s
}

// Suggest returns up to limit near matches for candidateID, closest first.
// Case differences and small typos both qualify.
func (s *Suggester) Suggest(candidateID string, limit int) []Suggestion {
	if s == nil || candidateID == "" || limit <= 0 || len(s.ids) == 0 {
		return nil
	}

	seen := make(map[int]int) // index -> distance
	for _, rank := range fuzzy.RankFindNormalizedFold(candidateID, s.ids) {
		seen[rank.OriginalIndex] = rank.Distance
	}

	lower := strings.ToLower(candidateID)
	for i, id := range s.ids {
		if _, ok := seen[i]; ok {
			continue
		}
		if d := fuzzy.LevenshteinDistance(lower, strings.ToLower(id)); d <= maxSuggestDistance {
			seen[i] = d
		}
	}

	out := make([]Suggestion, 0, len(seen))
	for i, d := range seen {
		if s.ids[i] == candidateID {
			continue
		}
		out = append(out, Suggestion{URN: s.urns[i], CanonicalID: s.ids[i], Distance: d})
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Distance != out[b].Distance {
			return out[a].Distance < out[b].Distance
		}
		return out[a].CanonicalID < out[b].CanonicalID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
