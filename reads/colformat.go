// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package reads

import (
	"context"

	"github.com/grailbio/readsource/encoding/colfmt"
	"github.com/grailbio/readsource/engine"
)

// colFormat reads sharded columnar datasets. Splits are ranges of recordio
// blocks taken from each shard's block index, grouped until their on-disk
// size reaches maxSplitBytes.
type colFormat struct{}

type colSplit struct {
	path       string
	index      int
	startBlock int
	numBlocks  int
}

func (s colSplit) SplitPath() string { return s.path }
func (s colSplit) SplitIndex() int   { return s.index }

func (colFormat) Plan(ctx context.Context, path string, maxSplitBytes int64) ([]engine.Split, error) {
	shards, err := engine.ListShards(ctx, path)
	if err != nil {
		return nil, err
	}
	var splits []engine.Split
	for _, shard := range shards {
		r, err := colfmt.NewReader(ctx, shard, colfmt.ReadOpts{})
		if err != nil {
			return nil, err
		}
		blocks := r.BlockIndex()
		if err := r.Close(ctx); err != nil {
			return nil, err
		}
		splits = planColShard(shard, blocks, maxSplitBytes, splits)
	}
	return splits, nil
}

func planColShard(path string, blocks []colfmt.BlockInfo, maxSplitBytes int64, splits []engine.Split) []engine.Split {
	if len(blocks) == 0 {
		// An empty shard contributes no records.
		return splits
	}
	if maxSplitBytes <= 0 {
		return append(splits, colSplit{path: path, index: len(splits), numBlocks: len(blocks)})
	}
	start := 0
	for i := 1; i < len(blocks); i++ {
		if int64(blocks[i].Offset-blocks[start].Offset) >= maxSplitBytes {
			splits = append(splits, colSplit{
				path:       path,
				index:      len(splits),
				startBlock: start,
				numBlocks:  i - start,
			})
			start = i
		}
	}
	return append(splits, colSplit{
		path:       path,
		index:      len(splits),
		startBlock: start,
		numBlocks:  len(blocks) - start,
	})
}

func (colFormat) Open(ctx context.Context, split engine.Split) (engine.Records, error) {
	s := split.(colSplit)
	r, err := colfmt.NewReader(ctx, s.path, colfmt.ReadOpts{
		StartBlock: s.startBlock,
		NumBlocks:  s.numBlocks,
	})
	if err != nil {
		return nil, err
	}
	return &colRecords{ctx: ctx, r: r}, nil
}

type colRecords struct {
	ctx context.Context
	r   *colfmt.Reader
}

func (c *colRecords) Scan() bool          { return c.r.Scan() }
func (c *colRecords) Record() interface{} { return c.r.Record() }
func (c *colRecords) Err() error          { return c.r.Err() }
func (c *colRecords) Close() error        { return c.r.Close(c.ctx) }
