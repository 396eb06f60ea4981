package faq

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Matcher answers questions by approximate similarity against the
// knowledge base. Matching is case-insensitive and deterministic: on a
// score tie the entry that appears first in the knowledge base wins.
type Matcher struct {
	entries   []Entry
	threshold float64
	metric    *metrics.SorensenDice
}

// NewMatcher builds a Matcher over entries. Scores below threshold are
// treated as no match.
func NewMatcher(entries []Entry, threshold float64) *Matcher {
	sd := metrics.NewSorensenDice()
	sd.CaseSensitive = false
	sd.NgramSize = 2
	return &Matcher{
		entries:   entries,
		threshold: threshold,
		metric:    sd,
	}
}

// Entries returns the knowledge base in its stored order.
func (m *Matcher) Entries() []Entry {
	return m.entries
}

// Match returns the best-scoring entry for text, or ok=false when no
// entry reaches the threshold or the input is blank.
func (m *Matcher) Match(text string) (Entry, float64, bool) {
	q := strings.ToLower(strings.TrimSpace(text))
	if q == "" || len(m.entries) == 0 {
		return Entry{}, 0, false
	}

	bestIdx := -1
	bestScore := 0.0
	for i, e := range m.entries {
		score := strutil.Similarity(q, strings.ToLower(e.Question), m.metric)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore < m.threshold {
		return Entry{}, bestScore, false
	}
	return m.entries[bestIdx], bestScore, true
}
