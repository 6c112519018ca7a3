package screenshot

import (
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Tier identifies the matching strategy that selected a screenshot.
type Tier string

const (
	TierExact     Tier = "exact"
	TierSubstring Tier = "substring"
	TierToken     Tier = "token"
	TierLatest    Tier = "latest"
)

// qualifierSeparators split namespaced identifiers such as "Suite.Class.Method".
const qualifierSeparators = `./\:+`

// Match is a candidate selected for a test.
type Match struct {
	Candidate
	Tier Tier `json:"tier"`
	// Segment is set when only the trailing segment of a qualified name matched.
	Segment bool `json:"segment,omitempty"`
}

// Matcher associates failed tests with screenshot files.
type Matcher struct {
	StopWords []string
	// FallbackLatest returns the newest screenshot when nothing else matches.
	FallbackLatest bool
	Logger         logrus.FieldLogger
}

// NewMatcher returns a matcher with the default stop words and the latest-file
// fallback enabled.
func NewMatcher(logger logrus.FieldLogger) *Matcher {
	return &Matcher{
		StopWords:      DefaultStopWords,
		FallbackLatest: true,
		Logger:         logger,
	}
}

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func (m *Matcher) log() logrus.FieldLogger {
	if m.Logger == nil {
		return discard
	}
	return m.Logger
}

// Match returns the candidates most likely to belong to the test described by
// search, best match first. The first tier that yields anything wins; ties are
// broken by newest modification time.
func (m *Matcher) Match(search string, candidates []Candidate) []Match {
	log := m.log().WithField("search", search)

	if len(candidates) == 0 {
		log.Debug("no screenshot candidates")
		return nil
	}

	ordered := byRecency(candidates)
	stop := stopSet(m.StopWords)

	if matches := matchTiers(search, ordered, stop, false); len(matches) > 0 {
		log.WithField("tier", matches[0].Tier).Debugf("matched %d screenshot(s)", len(matches))
		return dedupe(matches)
	}

	if seg, ok := trailingSegment(search); ok {
		if matches := matchTiers(seg, ordered, stop, true); len(matches) > 0 {
			log.WithFields(logrus.Fields{"tier": matches[0].Tier, "segment": seg}).
				Debugf("matched %d screenshot(s) on trailing segment", len(matches))
			return dedupe(matches)
		}
	}

	if !m.FallbackLatest {
		log.Debug("no screenshot matched")
		return nil
	}

	latest := ordered[0]
	log.WithField("file", latest.Name).Debug("no screenshot matched, falling back to latest")
	return []Match{{Candidate: latest, Tier: TierLatest}}
}

// matchTiers runs the exact, substring and token tiers in order. Candidates
// must already be in tie-break order.
func matchTiers(search string, candidates []Candidate, stop map[string]struct{}, segment bool) []Match {
	needle := Normalize(search)
	if needle == "" {
		return nil
	}

	normalized := make([]string, len(candidates))
	for i, c := range candidates {
		normalized[i] = Normalize(c.Description)
	}

	collect := func(tier Tier, accept func(string) bool) []Match {
		var out []Match
		for i, c := range candidates {
			if accept(normalized[i]) {
				out = append(out, Match{Candidate: c, Tier: tier, Segment: segment})
			}
		}
		return out
	}

	if out := collect(TierExact, func(n string) bool { return n == needle }); len(out) > 0 {
		return out
	}

	if out := collect(TierSubstring, func(n string) bool {
		return n != "" && (strings.Contains(n, needle) || strings.Contains(needle, n))
	}); len(out) > 0 {
		return out
	}

	searchTokens := tokenSet(needle, stop)
	if len(searchTokens) == 0 {
		return nil
	}
	need := min(2, len(searchTokens))

	return collect(TierToken, func(n string) bool {
		shared := 0
		for tok := range tokenSet(n, stop) {
			if _, ok := searchTokens[tok]; ok {
				shared++
			}
		}
		return shared >= need
	})
}

// trailingSegment returns the part after the last qualifier separator.
func trailingSegment(search string) (string, bool) {
	idx := strings.LastIndexAny(search, qualifierSeparators)
	if idx < 0 {
		return "", false
	}
	seg := strings.TrimSpace(search[idx+1:])
	if seg == "" {
		return "", false
	}
	return seg, true
}

// byRecency returns a copy ordered newest first, then by path.
func byRecency(candidates []Candidate) []Candidate {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
		return a.Path < b.Path
	})
	return ordered
}

func dedupe(matches []Match) []Match {
	seen := make(map[string]struct{}, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if _, ok := seen[m.Path]; ok {
			continue
		}
		seen[m.Path] = struct{}{}
		out = append(out, m)
	}
	return out
}
