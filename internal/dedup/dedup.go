// Package dedup finds playlist entries that carry the same channel at several quality
// tiers and computes which of them to drop so that only the best tier remains.
//
// Detection never touches the caller's sequence: Deduplicate reads a snapshot of display
// names and returns positions into that snapshot. Applying the removals is a separate
// pass done by the owner of the playlist.
package dedup

import (
	"sort"

	"github.com/snapetech/playlist-dedup/internal/quality"
)

// Record is anything with a display name, e.g. a playlist entry.
type Record interface {
	DisplayName() string
}

// Member is one record of a group, by position in the input.
type Member struct {
	Index int          `json:"index" yaml:"index"`
	Name  string       `json:"name" yaml:"name"`
	Tier  quality.Tier `json:"tier,omitempty" yaml:"tier,omitempty"` // empty when the name carries no tier
}

// Group is a channel found at two or more distinct tiers.
type Group struct {
	Key       string         `json:"key" yaml:"key"`
	Best      quality.Tier   `json:"best" yaml:"best"`
	Kept      []Member       `json:"kept" yaml:"kept"`
	Worse     []quality.Tier `json:"worse" yaml:"worse"`
	Removed   []Member       `json:"removed" yaml:"removed"`
	Untouched []Member       `json:"untouched,omitempty" yaml:"untouched,omitempty"` // same key, no tier
}

// Summary counts what a run found.
type Summary struct {
	Records int `json:"records" yaml:"records"`
	Groups  int `json:"groups" yaml:"groups"`
	Removed int `json:"removed" yaml:"removed"`
	Kept    int `json:"kept" yaml:"kept"`
}

// Result is the outcome of Deduplicate. Removals are ascending by Index.
type Result struct {
	Groups   []Group  `json:"groups" yaml:"groups"`
	Removals []Member `json:"removals" yaml:"removals"`
	Summary  Summary  `json:"summary" yaml:"summary"`
}

// Indices returns the removal positions as a set.
func (r Result) Indices() map[int]struct{} {
	out := make(map[int]struct{}, len(r.Removals))
	for _, m := range r.Removals {
		out[m.Index] = struct{}{}
	}
	return out
}

// Deduplicator groups records by normalized name under a fixed ranking.
type Deduplicator struct {
	ranking quality.Ranking
}

// New returns a Deduplicator using ranking to extract and order tiers.
func New(ranking quality.Ranking) *Deduplicator {
	return &Deduplicator{ranking: ranking}
}

// DeduplicateNames is Deduplicate over bare display names.
func (d *Deduplicator) DeduplicateNames(names []string) Result {
	records := make([]Record, len(names))
	for i, n := range names {
		records[i] = displayName(n)
	}
	return d.Deduplicate(records)
}

type displayName string

func (n displayName) DisplayName() string { return string(n) }

// Deduplicate returns the records to remove. Only members ranking strictly below the best
// tier of their group are removed; untiered members and members sharing the best tier
// stay. Groups are reported in order of first appearance.
func (d *Deduplicator) Deduplicate(records []Record) Result {
	res := Result{Summary: Summary{Records: len(records)}}
	for _, members := range d.group(records) {
		g, ok := d.resolve(members)
		if !ok {
			continue
		}
		res.Groups = append(res.Groups, g)
		res.Removals = append(res.Removals, g.Removed...)
	}
	sort.Slice(res.Removals, func(i, j int) bool {
		return res.Removals[i].Index < res.Removals[j].Index
	})
	res.Summary.Groups = len(res.Groups)
	res.Summary.Removed = len(res.Removals)
	res.Summary.Kept = res.Summary.Records - res.Summary.Removed
	return res
}

// group buckets records by normalized real name, preserving first-seen order.
func (d *Deduplicator) group(records []Record) [][]Member {
	byKey := make(map[string]int)
	var groups [][]Member
	for i, rec := range records {
		display := rec.DisplayName()
		key := d.ranking.Normalize(display)
		tier, _ := d.ranking.Extract(display)
		gi, seen := byKey[key]
		if !seen {
			gi = len(groups)
			byKey[key] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], Member{Index: i, Name: display, Tier: tier})
	}
	return groups
}

// resolve reports whether members form a duplicate group (two or more distinct
// tiers) and, if so, what is kept and removed.
func (d *Deduplicator) resolve(members []Member) (Group, bool) {
	best, distinct := d.best(members)
	if distinct < 2 {
		return Group{}, false
	}
	g := Group{
		Key:   d.ranking.Normalize(members[0].Name),
		Best:  best,
		Worse: d.WorseQualities(members, best),
	}
	g.Removed = RecordsToRemove(members, g.Worse)
	for _, m := range members {
		switch {
		case m.Tier == "":
			g.Untouched = append(g.Untouched, m)
		case m.Tier == best:
			g.Kept = append(g.Kept, m)
		}
	}
	return g, true
}

// best returns the best tier among members and how many distinct tiers they carry.
func (d *Deduplicator) best(members []Member) (quality.Tier, int) {
	var best quality.Tier
	seen := make(map[quality.Tier]struct{})
	for _, m := range members {
		if m.Tier == "" {
			continue
		}
		seen[m.Tier] = struct{}{}
		if best == "" || d.ranking.Better(m.Tier, best) {
			best = m.Tier
		}
	}
	return best, len(seen)
}

// WorseQualities lists the tiers present among members that rank strictly below best,
// best to worst, each once.
func (d *Deduplicator) WorseQualities(members []Member, best quality.Tier) []quality.Tier {
	present := make(map[quality.Tier]struct{}, len(members))
	for _, m := range members {
		present[m.Tier] = struct{}{}
	}
	var worse []quality.Tier
	for _, t := range d.ranking.Tiers() {
		if _, ok := present[t]; ok && d.ranking.Better(best, t) {
			worse = append(worse, t)
		}
	}
	return worse
}

// RecordsToRemove returns every member whose tier is in worse, in input order.
func RecordsToRemove(members []Member, worse []quality.Tier) []Member {
	drop := make(map[quality.Tier]struct{}, len(worse))
	for _, t := range worse {
		drop[t] = struct{}{}
	}
	var out []Member
	for _, m := range members {
		if _, ok := drop[m.Tier]; ok && m.Tier != "" {
			out = append(out, m)
		}
	}
	return out
}
