// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package reads

import (
	"context"
	"io"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/readsource/encoding/bai"
	"github.com/grailbio/readsource/engine"
)

// bamFormat reads sharded BAM datasets. Splits are record-aligned byte
// ranges: the .bai index next to each shard supplies the virtual offsets at
// which records are known to start. A shard without an index cannot be
// divided and becomes one split.
type bamFormat struct{}

// bamSplit is a record-aligned region of one BAM shard. The zero start
// offset means "immediately after the header", which needs no Seek. A record
// starting at or past limit belongs to the next split.
type bamSplit struct {
	path  string
	index int
	start bgzf.Offset
	limit bgzf.Offset
}

func (s bamSplit) SplitPath() string { return s.path }
func (s bamSplit) SplitIndex() int   { return s.index }

func (bamFormat) Plan(ctx context.Context, path string, maxSplitBytes int64) ([]engine.Split, error) {
	shards, err := engine.ListShards(ctx, path)
	if err != nil {
		return nil, err
	}
	var splits []engine.Split
	for _, shard := range shards {
		offsets, err := readIndexOffsets(ctx, shard)
		if err != nil {
			return nil, err
		}
		splits = planBAMShard(shard, offsets, maxSplitBytes, splits)
	}
	return splits, nil
}

// readIndexOffsets returns the record-start offsets listed in the shard's
// .bai companion, or nil if the shard has no index.
func readIndexOffsets(ctx context.Context, shard string) (offsets []bgzf.Offset, err error) {
	in, err := file.Open(ctx, shard+".bai")
	if err != nil {
		if errors.Is(errors.NotExist, err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	offsets, err = bai.ReadOffsets(in.Reader(ctx))
	if err != nil {
		return nil, errors.E(err, "read index", shard+".bai")
	}
	return offsets, nil
}

func planBAMShard(path string, offsets []bgzf.Offset, maxSplitBytes int64, splits []engine.Split) []engine.Split {
	noLimit := bgzf.Offset{File: math.MaxInt64}
	if len(offsets) == 0 || maxSplitBytes <= 0 {
		return append(splits, bamSplit{path: path, index: len(splits), limit: noLimit})
	}
	start := bgzf.Offset{}
	for _, off := range offsets {
		if off.File-start.File >= maxSplitBytes {
			splits = append(splits, bamSplit{path: path, index: len(splits), start: start, limit: off})
			start = off
		}
	}
	return append(splits, bamSplit{path: path, index: len(splits), start: start, limit: noLimit})
}

func (bamFormat) Open(ctx context.Context, split engine.Split) (engine.Records, error) {
	s := split.(bamSplit)
	in, err := file.Open(ctx, s.path)
	if err != nil {
		return nil, err
	}
	r, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		in.Close(ctx) // nolint: errcheck
		return nil, errors.E(err, "open bam", s.path)
	}
	if s.start.File != 0 || s.start.Block != 0 {
		if err := r.Seek(s.start); err != nil {
			r.Close()     // nolint: errcheck
			in.Close(ctx) // nolint: errcheck
			return nil, errors.E(err, "seek bam", s.path)
		}
	}
	return &bamRecords{ctx: ctx, in: in, r: r, limit: s.limit}, nil
}

type bamRecords struct {
	ctx   context.Context
	in    file.File
	r     *bam.Reader
	limit bgzf.Offset
	rec   *sam.Record
	err   error
}

func (b *bamRecords) Scan() bool {
	if b.err != nil {
		return false
	}
	rec, err := b.r.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		b.err = err
		return false
	}
	begin := b.r.LastChunk().Begin
	if begin.File > b.limit.File || (begin.File == b.limit.File && begin.Block >= b.limit.Block) {
		// The record starts in the next split.
		return false
	}
	b.rec = rec
	return true
}

func (b *bamRecords) Record() interface{} { return b.rec }

func (b *bamRecords) Err() error { return b.err }

func (b *bamRecords) Close() error {
	e := errors.Once{}
	e.Set(b.err)
	e.Set(b.r.Close())
	e.Set(b.in.Close(b.ctx))
	return e.Err()
}
