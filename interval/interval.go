// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package interval provides 1-based closed genomic intervals and
// record-overlap tests used to filter alignment records during loading.
package interval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/hts/sam"
)

// Interval is a closed, 1-based range [Start, End] on the named reference
// sequence. Interval values are immutable; callers construct them directly,
// via Parse, or derive them from a header with AllFromHeader.
type Interval struct {
	RefName string
	Start   int
	End     int
}

// String returns the interval in region notation, e.g. "chr1:100-200".
func (i Interval) String() string {
	return fmt.Sprintf("%s:%d-%d", i.RefName, i.Start, i.End)
}

// Contains returns true if the 1-based coordinate pos falls inside i.
// It does not consult the reference name.
func (i Interval) Contains(pos int) bool {
	return i.Start <= pos && pos <= i.End
}

// AllFromHeader returns one interval per reference sequence in the header,
// each spanning the full reference, [1, ref.Len()]. The intervals appear in
// sequence-dictionary order.
func AllFromHeader(header *sam.Header) []Interval {
	refs := header.Refs()
	intervals := make([]Interval, 0, len(refs))
	for _, ref := range refs {
		intervals = append(intervals, Interval{
			RefName: ref.Name(),
			Start:   1,
			End:     ref.Len(),
		})
	}
	return intervals
}

// RecordOverlaps reports whether rec should be accepted given the interval
// list. An empty or nil interval list accepts every record.
//
// An unmapped record that carries a placement coordinate (Pos >= 0; such
// coordinates exist only for sort order) is tested as a single point against
// the first interval in the list and no further: this mirrors the htsjdk
// query convention that a placed-unmapped read is returned iff its placement
// coordinate lies in the query region. Note the reference name is not
// consulted on this branch.
//
// Every other record uses true genomic overlap: same reference name, and the
// record's [Pos+1, End()] range (converted to 1-based closed) intersects the
// interval. An unmapped record with no placement coordinate overlaps nothing.
func RecordOverlaps(rec *sam.Record, intervals []Interval) bool {
	if len(intervals) == 0 {
		return true
	}
	for _, iv := range intervals {
		if rec.Flags&sam.Unmapped != 0 && rec.Pos >= 0 {
			return iv.Contains(rec.Pos + 1)
		}
		if overlapsRecord(iv, rec) {
			return true
		}
	}
	return false
}

func overlapsRecord(iv Interval, rec *sam.Record) bool {
	if rec.Ref == nil || rec.Ref.Name() != iv.RefName {
		return false
	}
	start := rec.Pos + 1 // 1-based
	end := rec.End()     // 0-based exclusive == 1-based inclusive
	return start <= iv.End && end >= iv.Start
}

// Parse parses region notation into an Interval. Accepted forms are
// "<ref>:<start>-<end>", "<ref>:<pos>", and "<ref>"; coordinates are 1-based
// and inclusive. For the open-ended forms Start defaults to 1 and End to
// maxEnd (pass the reference length, or a large constant when unknown).
func Parse(region string, maxEnd int) (Interval, error) {
	iv := Interval{Start: 1, End: maxEnd}
	colon := strings.IndexByte(region, ':')
	if colon < 0 {
		iv.RefName = region
	} else {
		iv.RefName = region[:colon]
		rest := region[colon+1:]
		dash := strings.IndexByte(rest, '-')
		var err error
		if dash < 0 {
			if iv.Start, err = strconv.Atoi(rest); err != nil {
				return Interval{}, fmt.Errorf("parse region %q: %v", region, err)
			}
			iv.End = iv.Start
		} else {
			if iv.Start, err = strconv.Atoi(rest[:dash]); err != nil {
				return Interval{}, fmt.Errorf("parse region %q: %v", region, err)
			}
			if iv.End, err = strconv.Atoi(rest[dash+1:]); err != nil {
				return Interval{}, fmt.Errorf("parse region %q: %v", region, err)
			}
		}
	}
	if iv.RefName == "" || iv.Start < 1 || iv.End < iv.Start {
		return Interval{}, fmt.Errorf("parse region %q: malformed region", region)
	}
	return iv, nil
}
