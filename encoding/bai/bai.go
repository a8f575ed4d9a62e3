// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bai reads the parts of a .bai BAM index needed to plan bounded
// splits: the record-aligned bgzf offsets at which decoding may start.
package bai

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/grailbio/hts/bgzf"
)

var baiMagic = [4]byte{'B', 'A', 'I', 0x1}

// The pseudo-bin holding per-reference metadata rather than chunks.
const metadataBinNum = 37450

// ReadOffsets parses a .bai index and returns the bgzf virtual offsets of
// every chunk begin and linear-interval entry in it, across all references,
// sorted and de-duplicated. Each returned offset is the start of a record,
// so a decoder may seek to any of them and read forward.
func ReadOffsets(r io.Reader) ([]bgzf.Offset, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != baiMagic {
		return nil, fmt.Errorf("bai: invalid magic %v", magic)
	}
	var refCount int32
	if err := binary.Read(r, binary.LittleEndian, &refCount); err != nil {
		return nil, err
	}
	var offsets []bgzf.Offset
	add := func(voffset uint64) {
		if voffset == 0 {
			return
		}
		offsets = append(offsets, bgzf.Offset{
			File:  int64(voffset >> 16),
			Block: uint16(voffset),
		})
	}
	for ref := int32(0); ref < refCount; ref++ {
		var binCount int32
		if err := binary.Read(r, binary.LittleEndian, &binCount); err != nil {
			return nil, err
		}
		for b := int32(0); b < binCount; b++ {
			var binNum uint32
			if err := binary.Read(r, binary.LittleEndian, &binNum); err != nil {
				return nil, err
			}
			var chunkCount int32
			if err := binary.Read(r, binary.LittleEndian, &chunkCount); err != nil {
				return nil, err
			}
			for c := int32(0); c < chunkCount; c++ {
				var begin, end uint64
				if err := binary.Read(r, binary.LittleEndian, &begin); err != nil {
					return nil, err
				}
				if err := binary.Read(r, binary.LittleEndian, &end); err != nil {
					return nil, err
				}
				if binNum != metadataBinNum {
					add(begin)
				}
			}
		}
		var intervalCount int32
		if err := binary.Read(r, binary.LittleEndian, &intervalCount); err != nil {
			return nil, err
		}
		for iv := int32(0); iv < intervalCount; iv++ {
			var voffset uint64
			if err := binary.Read(r, binary.LittleEndian, &voffset); err != nil {
				return nil, err
			}
			add(voffset)
		}
	}
	sort.Slice(offsets, func(i, j int) bool {
		if offsets[i].File != offsets[j].File {
			return offsets[i].File < offsets[j].File
		}
		return offsets[i].Block < offsets[j].Block
	})
	uniq := offsets[:0]
	prev := bgzf.Offset{File: -1}
	for _, off := range offsets {
		if off != prev {
			uniq = append(uniq, off)
			prev = off
		}
	}
	return uniq, nil
}
