// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package colfmt implements a columnar container for aligned and unmapped
// reads. A shard file is a recordio file (zstd compressed) whose trailer
// stores a BAM-binary copy of the SAM header plus an index of the recordio
// blocks. The block index lets readers open a bounded range of blocks
// without touching the rest of the file.
package colfmt

import (
	"encoding/binary"
	"fmt"

	"github.com/grailbio/hts/sam"
)

// Record is one read in columnar form. Reference sequences are stored as
// indexes into the header's reference list; -1 means no reference.
// Pos and MatePos are 0-based, with -1 meaning no coordinate.
type Record struct {
	Name         string
	Flags        sam.Flags
	RefIndex     int32
	Pos          int32
	MapQ         uint8
	Cigar        string
	MateRefIndex int32
	MatePos      int32
	TempLen      int32
	// AlignEnd is the 0-based exclusive end of the alignment, precomputed
	// from the cigar at write time. For unmapped records it equals Pos.
	AlignEnd int32
	Seq      string
	Qual     []byte
}

// Unmapped reports whether the unmapped flag is set.
func (r *Record) Unmapped() bool { return r.Flags&sam.Unmapped != 0 }

// FromSAM converts rec to its columnar form. The result does not alias rec.
func FromSAM(rec *sam.Record) *Record {
	r := &Record{
		Name:         rec.Name,
		Flags:        rec.Flags,
		RefIndex:     refID(rec.Ref),
		Pos:          int32(rec.Pos),
		MapQ:         rec.MapQ,
		Cigar:        rec.Cigar.String(),
		MateRefIndex: refID(rec.MateRef),
		MatePos:      int32(rec.MatePos),
		TempLen:      int32(rec.TempLen),
		AlignEnd:     int32(rec.End()),
		Seq:          string(rec.Seq.Expand()),
	}
	r.Qual = make([]byte, len(rec.Qual))
	copy(r.Qual, rec.Qual)
	return r
}

func refID(ref *sam.Reference) int32 {
	if ref == nil {
		return -1
	}
	return int32(ref.ID())
}

// marshal appends the record to buf, prefixed with its payload length.
func (r *Record) marshal(buf []byte) []byte {
	lenOff := len(buf)
	buf = appendUint32(buf, 0) // patched below
	buf = appendUint16(buf, uint16(r.Flags))
	buf = appendUint32(buf, uint32(r.RefIndex))
	buf = appendUint32(buf, uint32(r.Pos))
	buf = append(buf, r.MapQ)
	buf = appendUint32(buf, uint32(r.MateRefIndex))
	buf = appendUint32(buf, uint32(r.MatePos))
	buf = appendUint32(buf, uint32(r.TempLen))
	buf = appendUint32(buf, uint32(r.AlignEnd))
	buf = appendField(buf, []byte(r.Name))
	buf = appendField(buf, []byte(r.Cigar))
	buf = appendField(buf, []byte(r.Seq))
	buf = appendField(buf, r.Qual)
	binary.LittleEndian.PutUint32(buf[lenOff:], uint32(len(buf)-lenOff-4))
	return buf
}

func unmarshalRecord(data []byte) (*Record, error) {
	f := fieldReader{data: data}
	r := &Record{}
	r.Flags = sam.Flags(f.uint16())
	r.RefIndex = int32(f.uint32())
	r.Pos = int32(f.uint32())
	r.MapQ = f.uint8()
	r.MateRefIndex = int32(f.uint32())
	r.MatePos = int32(f.uint32())
	r.TempLen = int32(f.uint32())
	r.AlignEnd = int32(f.uint32())
	r.Name = string(f.field())
	r.Cigar = string(f.field())
	r.Seq = string(f.field())
	qual := f.field()
	r.Qual = make([]byte, len(qual))
	copy(r.Qual, qual)
	if f.err != nil {
		return nil, f.err
	}
	if f.off != len(f.data) {
		return nil, fmt.Errorf("colfmt: %d byte junk at the end of record", len(f.data)-f.off)
	}
	return r, nil
}

func appendUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v), byte(v>>8))
}

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendUint64(buf []byte, v uint64) []byte {
	buf = appendUint32(buf, uint32(v))
	return appendUint32(buf, uint32(v>>32))
}

func appendField(buf, v []byte) []byte {
	buf = appendUint32(buf, uint32(len(v)))
	return append(buf, v...)
}

type fieldReader struct {
	data []byte
	off  int
	err  error
}

func (f *fieldReader) next(n int) []byte {
	if f.err != nil {
		return nil
	}
	if f.off+n > len(f.data) {
		f.err = fmt.Errorf("colfmt: corrupt record, %d bytes missing", f.off+n-len(f.data))
		return nil
	}
	b := f.data[f.off : f.off+n]
	f.off += n
	return b
}

func (f *fieldReader) uint8() uint8 {
	b := f.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (f *fieldReader) uint16() uint16 {
	b := f.next(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (f *fieldReader) uint32() uint32 {
	b := f.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (f *fieldReader) uint64() uint64 {
	b := f.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (f *fieldReader) field() []byte {
	n := f.uint32()
	return f.next(int(n))
}
