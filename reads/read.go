// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package reads loads aligned and unmapped reads from sharded BAM and
// columnar datasets, in parallel, behind one normalized record type. It is
// the high-level entry point; the split planning and worker plumbing live in
// package engine.
package reads

import (
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/readsource/encoding/colfmt"
	"github.com/grailbio/readsource/engine"
	"github.com/pkg/errors"
)

// Kind identifies the storage format a Read was loaded from.
type Kind uint8

const (
	// SAM is a read backed by a *sam.Record, loaded from a BAM shard.
	SAM Kind = iota
	// Columnar is a read backed by a *colfmt.Record.
	Columnar
)

// maxNameLen is the longest query name representable in BAM (a one-byte
// length including the NUL terminator).
const maxNameLen = 254

// ErrMalformed is the cause of errors returned by FromSAM for records that
// fail validation. Use IsMalformed to test for it.
var ErrMalformed = errors.New("malformed read record")

// IsMalformed reports whether err was caused by record validation.
func IsMalformed(err error) bool {
	return errors.Cause(err) == ErrMalformed
}

// Read is one read, normalized across storage formats. A Read owns its
// payload and may be retained beyond the yielding stream, except that
// columnar reads resolve reference names through a broadcast header whose
// lifetime is the stream's: RefName degrades to "*" once the stream is
// closed, or when no header was supplied.
type Read struct {
	kind   Kind
	rec    *sam.Record
	col    *colfmt.Record
	header engine.Broadcast
}

// FromSAM validates rec and wraps it as a Read. Records with an empty or
// overlong name, a sequence/quality length mismatch, or corrupt auxiliary
// fields are rejected with an error for which IsMalformed returns true.
func FromSAM(rec *sam.Record) (*Read, error) {
	if len(rec.Name) == 0 || len(rec.Name) > maxNameLen {
		return nil, errors.Wrapf(ErrMalformed, "invalid name of %d bytes", len(rec.Name))
	}
	if rec.Seq.Length != len(rec.Qual) && len(rec.Qual) != 0 {
		return nil, errors.Wrapf(ErrMalformed, "%s: %d seq bases with %d quals", rec.Name, rec.Seq.Length, len(rec.Qual))
	}
	if rec.Pos < -1 {
		return nil, errors.Wrapf(ErrMalformed, "%s: position %d", rec.Name, rec.Pos)
	}
	for _, aux := range rec.AuxFields {
		if err := validAux(aux); err != nil {
			return nil, errors.Wrapf(ErrMalformed, "%s: %v", rec.Name, err)
		}
	}
	return &Read{kind: SAM, rec: rec}, nil
}

// validAux checks the tag/type framing of one auxiliary field.
func validAux(aux sam.Aux) error {
	if len(aux) < 3 {
		return errors.Errorf("truncated aux field of %d bytes", len(aux))
	}
	switch aux[2] {
	case 'A', 'c', 'C', 's', 'S', 'i', 'I', 'f', 'Z', 'H', 'B':
		return nil
	}
	return errors.Errorf("aux field %s has unknown type %q", string(aux[:2]), aux[2])
}

// FromColumnar wraps rec as a Read. header may be the zero Broadcast, in
// which case reference names are reported as "*".
func FromColumnar(rec *colfmt.Record, header engine.Broadcast) *Read {
	return &Read{kind: Columnar, col: rec, header: header}
}

// Kind returns the storage format this read was loaded from.
func (r *Read) Kind() Kind { return r.kind }

// SAM returns the underlying record for reads of kind SAM, else nil.
func (r *Read) SAM() *sam.Record { return r.rec }

// Columnar returns the underlying record for reads of kind Columnar, else
// nil.
func (r *Read) Columnar() *colfmt.Record { return r.col }

// Name returns the query name.
func (r *Read) Name() string {
	if r.kind == SAM {
		return r.rec.Name
	}
	return r.col.Name
}

// Flags returns the SAM flags.
func (r *Read) Flags() sam.Flags {
	if r.kind == SAM {
		return r.rec.Flags
	}
	return r.col.Flags
}

// Unmapped reports whether the unmapped flag is set.
func (r *Read) Unmapped() bool { return r.Flags()&sam.Unmapped != 0 }

// MapQ returns the mapping quality.
func (r *Read) MapQ() byte {
	if r.kind == SAM {
		return r.rec.MapQ
	}
	return r.col.MapQ
}

// Start returns the 1-based alignment, or placement, coordinate. Zero means
// the read has no coordinate at all.
func (r *Read) Start() int {
	pos := -1
	if r.kind == SAM {
		pos = r.rec.Pos
	} else {
		pos = int(r.col.Pos)
	}
	if pos < 0 {
		return 0
	}
	return pos + 1
}

// End returns the 1-based inclusive end of the alignment. For unmapped or
// coordinate-less reads it equals Start.
func (r *Read) End() int {
	if r.Unmapped() {
		return r.Start()
	}
	if r.kind == SAM {
		if r.rec.Pos < 0 {
			return 0
		}
		return r.rec.End()
	}
	if r.col.Pos < 0 {
		return 0
	}
	if r.col.AlignEnd <= r.col.Pos {
		return r.Start()
	}
	return int(r.col.AlignEnd)
}

// RefName returns the name of the reference the read is placed on, or "*"
// when it has none or the name cannot be resolved.
func (r *Read) RefName() string {
	if r.kind == SAM {
		if r.rec.Ref == nil {
			return "*"
		}
		return r.rec.Ref.Name()
	}
	if r.col.RefIndex < 0 {
		return "*"
	}
	v, ok := r.header.Value()
	if !ok || v == nil {
		return "*"
	}
	refs := v.(*sam.Header).Refs()
	if int(r.col.RefIndex) >= len(refs) {
		return "*"
	}
	return refs[r.col.RefIndex].Name()
}
