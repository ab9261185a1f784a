// Package quality recognizes the quality tier suffix IPTV providers append to channel
// names ("TVP1 HD", "TVP1 FHD", "TVP1 4K+") and derives the name the channel is known by
// regardless of tier.
package quality

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Tier is a quality token as it appears at the end of a channel name, e.g. "FHD".
type Tier string

// Default is the built-in ranking, best first. Matching is exact and case-sensitive.
var Default = MustRanking("4K+", "4K", "FHD", "HD", "SD")

// Ranking is an ordered table of tiers, index 0 being the best quality.
// The zero value ranks nothing and never extracts a tier.
type Ranking struct {
	tiers []Tier
	rank  map[Tier]int
	// byLength holds the tiers longest token first so that "4K+" is tried before "4K"
	// and "FHD" before "HD".
	byLength []Tier
}

// NewRanking builds a ranking from tokens ordered best to worst.
func NewRanking(tokens ...string) (Ranking, error) {
	if len(tokens) == 0 {
		return Ranking{}, errors.New("quality: empty ranking")
	}
	r := Ranking{
		tiers: make([]Tier, 0, len(tokens)),
		rank:  make(map[Tier]int, len(tokens)),
	}
	for i, tok := range tokens {
		if strings.TrimSpace(tok) != tok || tok == "" {
			return Ranking{}, fmt.Errorf("quality: invalid token %q at position %d", tok, i)
		}
		t := Tier(tok)
		if _, dup := r.rank[t]; dup {
			return Ranking{}, fmt.Errorf("quality: duplicate token %q", tok)
		}
		r.rank[t] = i
		r.tiers = append(r.tiers, t)
	}
	r.byLength = append([]Tier(nil), r.tiers...)
	sort.SliceStable(r.byLength, func(i, j int) bool {
		return len(r.byLength[i]) > len(r.byLength[j])
	})
	return r, nil
}

// MustRanking is NewRanking that panics on error. For package-level tables.
func MustRanking(tokens ...string) Ranking {
	r, err := NewRanking(tokens...)
	if err != nil {
		panic(err)
	}
	return r
}

// Tiers returns the tiers best to worst.
func (r Ranking) Tiers() []Tier {
	return append([]Tier(nil), r.tiers...)
}

// Rank returns the position of t in the ranking (0 = best).
func (r Ranking) Rank(t Tier) (int, bool) {
	i, ok := r.rank[t]
	return i, ok
}

// Better reports whether a ranks strictly above b. Unknown tiers never compare better.
func (r Ranking) Better(a, b Tier) bool {
	ia, okA := r.rank[a]
	ib, okB := r.rank[b]
	return okA && okB && ia < ib
}

// RealName returns the trimmed part of a display name after the last comma. Providers
// prefix names with group or provider labels ("Provider, TVP1 HD"); only the tail names
// the channel.
func RealName(display string) string {
	if i := strings.LastIndex(display, ","); i >= 0 {
		display = display[i+1:]
	}
	return strings.TrimSpace(display)
}

// Extract returns the tier whose token ends the trimmed real name of name.
func (r Ranking) Extract(name string) (Tier, bool) {
	t, _, ok := r.split(name)
	return t, ok
}

// Normalize returns the real name with its trailing tier token removed, trimmed.
// Names without a tier come back trimmed but otherwise unchanged.
// Normalize(Normalize(x)) == Normalize(x) for every x.
func (r Ranking) Normalize(name string) string {
	_, base, _ := r.split(name)
	return base
}

// split returns the tier and the key. A token counts only when whitespace separates it
// from the rest of the name, so "FOXHD" and a bare "HD" carry no tier. The token is kept
// in the key when the remainder would itself end in a token ("A HD HD"); otherwise a second
// Normalize would strip again.
func (r Ranking) split(name string) (Tier, string, bool) {
	rn := RealName(name)
	t, base, ok := r.peel(rn)
	if !ok {
		return "", rn, false
	}
	if _, _, again := r.peel(base); again {
		return t, rn, true
	}
	return t, base, true
}

func (r Ranking) peel(s string) (Tier, string, bool) {
	for _, t := range r.byLength {
		rest, found := strings.CutSuffix(s, string(t))
		if !found {
			continue
		}
		base := strings.TrimRightFunc(rest, unicode.IsSpace)
		if base == rest || base == "" {
			continue
		}
		base = strings.TrimSpace(base)
		return t, base, true
	}
	return "", s, false
}
