// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package reads

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/readsource/engine"
)

// ResolveHeader returns the SAM header governing the BAM shards under path.
// Shards written by one job share a header, so only the first shard in
// lexical order is opened. path may also name a single BAM file.
//
// A path with no shards yields an error for which
// errors.Is(errors.NotExist, err) holds; an unreadable or corrupt shard
// yields a distinct I/O error.
func ResolveHeader(ctx context.Context, path string) (*sam.Header, error) {
	shards, err := engine.ListShards(ctx, path)
	if err != nil {
		return nil, err
	}
	return readBAMHeader(ctx, shards[0])
}

func readBAMHeader(ctx context.Context, path string) (header *sam.Header, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	r, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return nil, errors.E(err, "read bam header", path)
	}
	header = r.Header()
	if err := r.Close(); err != nil {
		return nil, errors.E(err, "read bam header", path)
	}
	return header, nil
}
