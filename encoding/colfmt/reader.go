// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package colfmt

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/hts/sam"
)

// ReadOpts bounds a Reader to a contiguous range of recordio blocks.
type ReadOpts struct {
	// StartBlock is the index of the first block to read, in [0, len(index)].
	StartBlock int
	// NumBlocks limits the number of blocks read. Zero means through the end
	// of the file.
	NumBlocks int
}

// Reader scans records from a shard file written by Writer. Records are
// yielded in the order they were appended. Use the Scan/Record/Err idiom:
//
//	r, err := colfmt.NewReader(ctx, path, colfmt.ReadOpts{})
//	for r.Scan() {
//	  rec := r.Record()
//	  ...
//	}
//	err = r.Close(ctx)
type Reader struct {
	in     file.File
	rio    recordio.Scanner
	header *sam.Header
	blocks []BlockInfo
	snappy bool

	remaining int64
	block     []byte
	rec       *Record
	err       error
}

// NewReader opens the shard file at path and positions the scanner at the
// block range requested in opts.
func NewReader(ctx context.Context, path string, opts ReadOpts) (*Reader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	r := &Reader{in: in}
	r.rio = recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	if err := r.readTrailer(path); err != nil {
		in.Close(ctx) // nolint: errcheck
		return nil, err
	}
	start, n := opts.StartBlock, opts.NumBlocks
	if start < 0 || start > len(r.blocks) {
		in.Close(ctx) // nolint: errcheck
		return nil, fmt.Errorf("%s: start block %d out of range, file has %d blocks", path, start, len(r.blocks))
	}
	if n <= 0 || start+n > len(r.blocks) {
		n = len(r.blocks) - start
	}
	for _, b := range r.blocks[start : start+n] {
		r.remaining += int64(b.NumRecords)
	}
	if start > 0 && n > 0 {
		r.rio.Seek(recordio.ItemLocation{Block: r.blocks[start].Offset, Item: 0})
	}
	return r, nil
}

func (r *Reader) readTrailer(path string) error {
	header := r.rio.Header()
	if !header.HasTrailer() {
		err := r.rio.Err()
		if err == nil {
			err = fmt.Errorf("%s: shard file missing trailer", path)
		}
		return err
	}
	f := fieldReader{data: r.rio.Trailer()}
	flags := f.uint8()
	r.snappy = flags&trailerSnappyFlag != 0
	headerBytes := f.field()
	nBlocks := int(f.uint32())
	for i := 0; i < nBlocks; i++ {
		r.blocks = append(r.blocks, BlockInfo{
			Offset:     f.uint64(),
			NumRecords: f.uint32(),
		})
	}
	if f.err != nil {
		return fmt.Errorf("%s: corrupt trailer: %v", path, f.err)
	}
	samHeader, err := unmarshalHeader(headerBytes)
	if err != nil {
		return fmt.Errorf("%s: corrupt header: %v", path, err)
	}
	r.header = samHeader
	return nil
}

// Header returns the SAM header stored in the file trailer.
func (r *Reader) Header() *sam.Header { return r.header }

// BlockIndex returns the index of all blocks in the file, regardless of the
// block range the reader was opened with.
func (r *Reader) BlockIndex() []BlockInfo { return r.blocks }

// Scan reads the next record. It returns false at the end of the block range
// or on error.
func (r *Reader) Scan() bool {
	if r.err != nil || r.remaining <= 0 {
		return false
	}
	for len(r.block) == 0 {
		if !r.rio.Scan() {
			r.err = r.rio.Err()
			if r.err == nil {
				// The block index promised more records.
				r.err = io.ErrUnexpectedEOF
			}
			return false
		}
		block := r.rio.Get().([]byte)
		if r.snappy {
			var err error
			if block, err = snappy.Decode(nil, block); err != nil {
				r.err = err
				return false
			}
		}
		r.block = block
	}
	if len(r.block) < 4 {
		r.err = fmt.Errorf("colfmt: truncated record prefix, %d bytes left in block", len(r.block))
		return false
	}
	n := int(binary.LittleEndian.Uint32(r.block[:4]))
	if 4+n > len(r.block) {
		r.err = fmt.Errorf("colfmt: record of %d bytes overruns block of %d bytes", n, len(r.block)-4)
		return false
	}
	rec, err := unmarshalRecord(r.block[4 : 4+n])
	if err != nil {
		r.err = err
		return false
	}
	r.block = r.block[4+n:]
	r.rec = rec
	r.remaining--
	return true
}

// Record returns the record read by the last successful Scan.
func (r *Reader) Record() *Record { return r.rec }

// Err returns any error encountered so far. io.EOF is not an error.
func (r *Reader) Err() error { return r.err }

// Close closes the underlying file. It returns the first error encountered
// during scanning, if any.
func (r *Reader) Close(ctx context.Context) error {
	err := r.in.Close(ctx)
	if r.err != nil {
		return r.err
	}
	return err
}

func unmarshalHeader(buf []byte) (*sam.Header, error) {
	header, err := sam.NewHeader(nil, nil)
	if err != nil {
		return nil, err
	}
	hr := bytes.NewReader(buf)
	if err := header.DecodeBinary(hr); err != nil {
		return nil, err
	}
	if hr.Len() > 0 {
		return nil, fmt.Errorf("%d byte junk at the end of SAM header", hr.Len())
	}
	return header, nil
}
