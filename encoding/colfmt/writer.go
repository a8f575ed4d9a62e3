// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package colfmt

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// DefaultBlockRecords is the default number of records packed into one
// recordio block.
const DefaultBlockRecords = 4096

func init() {
	recordiozstd.Init()
}

// BlockInfo describes one recordio block of a shard file. The trailer stores
// one entry per block, in file order.
type BlockInfo struct {
	// Offset is the file offset of the block.
	Offset uint64
	// NumRecords is the number of records stored in the block.
	NumRecords uint32
}

// WriterOpts defines options for NewWriter.
type WriterOpts struct {
	// BlockRecords caps the number of records per recordio block. Zero means
	// DefaultBlockRecords.
	BlockRecords int
	// Snappy compresses each block with snappy instead of the default zstd
	// transformer. Snappy decodes faster at a worse compression ratio; the
	// flag is recorded in the trailer so readers pick the right codec.
	Snappy bool
}

// Writer produces a columnar shard file. Records are stored in append order.
// Not thread safe.
type Writer struct {
	out         file.File
	rio         recordio.Writer
	err         errors.Once
	blockCap    int
	snappy      bool
	buf         []byte
	bufRecs     int
	headerBytes []byte

	indexMu sync.Mutex
	blocks  []BlockInfo
}

// blockBuf is the unit passed to recordio.Append: one item per block.
type blockBuf struct {
	data     []byte
	nRecords int
}

// NewWriter creates a shard file at path. The header is stored in the file
// trailer and returned by Reader.Header on read.
func NewWriter(ctx context.Context, path string, header *sam.Header, opts WriterOpts) (*Writer, error) {
	if opts.BlockRecords <= 0 {
		opts.BlockRecords = DefaultBlockRecords
	}
	headerBytes, err := marshalHeader(header)
	if err != nil {
		return nil, errors.E(err, "colfmt: encode header", path)
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		out:         out,
		blockCap:    opts.BlockRecords,
		snappy:      opts.Snappy,
		headerBytes: headerBytes,
	}
	var transformers []string
	if !opts.Snappy {
		// Snappy-compressed blocks are already opaque; everything else goes
		// through the zstd transformer.
		transformers = []string{recordiozstd.Name}
	}
	w.rio = recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{
		Transformers: transformers,
		Marshal: func(scratch []byte, v interface{}) ([]byte, error) {
			return v.(blockBuf).data, nil
		},
		Index: func(loc recordio.ItemLocation, v interface{}) error {
			b := v.(blockBuf)
			if loc.Item != 0 { // one item per block
				vlog.Fatal(loc)
			}
			w.indexMu.Lock()
			w.blocks = append(w.blocks, BlockInfo{
				Offset:     loc.Block,
				NumRecords: uint32(b.nRecords),
			})
			w.indexMu.Unlock()
			return nil
		},
	})
	w.rio.AddHeader(recordio.KeyTrailer, true)
	return w, nil
}

// Append adds rec to the file.
func (w *Writer) Append(rec *Record) {
	w.buf = rec.marshal(w.buf)
	w.bufRecs++
	if w.bufRecs >= w.blockCap {
		w.flush()
	}
}

func (w *Writer) flush() {
	if w.bufRecs == 0 {
		return
	}
	data := w.buf
	if w.snappy {
		data = snappy.Encode(nil, data)
	}
	w.rio.Append(blockBuf{data: data, nRecords: w.bufRecs})
	w.rio.Flush()
	// Ownership of the buffer passed to the recordio writer.
	w.buf = nil
	w.bufRecs = 0
}

// Close flushes pending records, writes the trailer and closes the file.
func (w *Writer) Close(ctx context.Context) error {
	w.flush()
	w.rio.Wait()
	// Index callbacks may run out of file order.
	sort.Slice(w.blocks, func(i, j int) bool { return w.blocks[i].Offset < w.blocks[j].Offset })
	w.rio.SetTrailer(marshalTrailer(w.headerBytes, w.blocks, w.snappy))
	w.err.Set(w.rio.Finish())
	w.err.Set(w.out.Close(ctx))
	return w.err.Err()
}

func marshalHeader(header *sam.Header) ([]byte, error) {
	bb := bytes.Buffer{}
	if err := header.EncodeBinary(&bb); err != nil {
		return nil, err
	}
	return bb.Bytes(), nil
}

const trailerSnappyFlag = 1

func marshalTrailer(header []byte, blocks []BlockInfo, useSnappy bool) []byte {
	buf := make([]byte, 0, 9+len(header)+12*len(blocks))
	var flags byte
	if useSnappy {
		flags |= trailerSnappyFlag
	}
	buf = append(buf, flags)
	buf = appendUint32(buf, uint32(len(header)))
	buf = append(buf, header...)
	buf = appendUint32(buf, uint32(len(blocks)))
	for _, b := range blocks {
		buf = appendUint64(buf, b.Offset)
		buf = appendUint32(buf, b.NumRecords)
	}
	return buf
}
