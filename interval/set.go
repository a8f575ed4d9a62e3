// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package interval

import (
	"sort"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/hts/sam"
)

// setEntry is one merged interval in a per-reference tree, keyed by start.
type setEntry struct {
	start, end int
}

// Compare compares two setEntry objects for use in llrb.
func (e setEntry) Compare(c2 llrb.Comparable) int {
	return e.start - c2.(setEntry).start
}

// Set indexes a list of intervals for overlap queries in O(log n) per
// record. A Set is immutable once built and safe for concurrent use.
//
// Set preserves the semantics of RecordOverlaps exactly, including the
// first-interval-only rule for placed-unmapped records, so the two are
// interchangeable; Set is the one to use when the interval list is large or
// the record stream is long.
type Set struct {
	empty bool
	first Interval
	trees map[string]*llrb.Tree
}

// NewSet builds a Set from intervals. The intervals may be unsorted and may
// overlap each other; per reference they are merged into a minimal sorted
// list before indexing.
func NewSet(intervals []Interval) *Set {
	s := &Set{
		empty: len(intervals) == 0,
		trees: make(map[string]*llrb.Tree),
	}
	if s.empty {
		return s
	}
	s.first = intervals[0]
	byRef := make(map[string][]Interval)
	for _, iv := range intervals {
		byRef[iv.RefName] = append(byRef[iv.RefName], iv)
	}
	for refName, ivs := range byRef {
		sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start < ivs[j].Start })
		tree := &llrb.Tree{}
		cur := setEntry{start: ivs[0].Start, end: ivs[0].End}
		for _, iv := range ivs[1:] {
			if iv.Start <= cur.end+1 {
				if iv.End > cur.end {
					cur.end = iv.End
				}
				continue
			}
			tree.Insert(cur)
			cur = setEntry{start: iv.Start, end: iv.End}
		}
		tree.Insert(cur)
		s.trees[refName] = tree
	}
	return s
}

// Overlaps reports whether the closed 1-based range [start, end] on refName
// intersects any interval in the set.
func (s *Set) Overlaps(refName string, start, end int) bool {
	tree := s.trees[refName]
	if tree == nil {
		return false
	}
	// Merged intervals are disjoint, so the only candidate is the one with
	// the greatest start <= end.
	c := tree.Floor(setEntry{start: end})
	if c == nil {
		return false
	}
	return c.(setEntry).end >= start
}

// MatchesRecord reports whether rec should be accepted. It computes the same
// predicate as RecordOverlaps over the intervals the Set was built from.
func (s *Set) MatchesRecord(rec *sam.Record) bool {
	if s.empty {
		return true
	}
	if rec.Flags&sam.Unmapped != 0 && rec.Pos >= 0 {
		return s.first.Contains(rec.Pos + 1)
	}
	if rec.Ref == nil {
		return false
	}
	return s.Overlaps(rec.Ref.Name(), rec.Pos+1, rec.End())
}
