// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package reads

import (
	"context"

	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/readsource/encoding/colfmt"
	"github.com/grailbio/readsource/engine"
	"github.com/grailbio/readsource/interval"
)

// DefaultMaxSplitBytes bounds the on-disk size of one split when Opts leaves
// it unset. Small splits keep decoded partitions within a worker's memory
// budget even for heavily compressed shards.
const DefaultMaxSplitBytes = 4 << 20

// Opts configures a Source.
type Opts struct {
	// MaxSplitBytes bounds the on-disk size of one split. Zero means
	// DefaultMaxSplitBytes.
	MaxSplitBytes int64
	// Parallelism caps the number of concurrent split readers. Zero means
	// the number of CPUs.
	Parallelism int
	// QueueSize is the number of reads buffered between the split readers
	// and the consumer. Zero means a reasonable default.
	QueueSize int
}

// Source loads reads from sharded datasets. A Source is stateless and thread
// safe; one Source may serve many concurrent read operations.
type Source struct {
	opts Opts
}

// NewSource creates a Source with the given options.
func NewSource(opts Opts) *Source {
	if opts.MaxSplitBytes <= 0 {
		opts.MaxSplitBytes = DefaultMaxSplitBytes
	}
	return &Source{opts: opts}
}

// Stream yields the reads of one read operation. Reads from one split arrive
// in on-disk order; reads from different splits interleave arbitrarily.
// Close must be called exactly once, whether or not the stream was drained.
type Stream struct {
	s *engine.Stream
}

// Scan advances to the next read, returning false at the end of the stream
// or on error.
func (s *Stream) Scan() bool { return s.s.Scan() }

// Read returns the read yielded by the last successful Scan. The caller may
// retain it.
func (s *Stream) Read() *Read { return s.s.Record().(*Read) }

// Err returns the first error encountered by the operation, or nil.
func (s *Stream) Err() error { return s.s.Err() }

// Close releases the operation's workers and resources and returns Err.
func (s *Stream) Close() error { return s.s.Close() }

// Reads streams the reads of the BAM shards under path that overlap one of
// the given intervals. Empty intervals admit every read. Records that fail
// validation are dropped, not reported as errors.
//
// An unmapped mate placed at a mapped read's coordinate is tested against
// the first interval only, mirroring the coordinate-placement convention of
// distributed BAM loaders.
func (s *Source) Reads(ctx context.Context, path string, intervals []interval.Interval) (*Stream, error) {
	set := interval.NewSet(intervals)
	transform := func(v interface{}) (interface{}, bool, error) {
		rec := v.(*sam.Record)
		if !set.MatchesRecord(rec) {
			return nil, false, nil
		}
		r, err := FromSAM(rec)
		if err != nil {
			if IsMalformed(err) {
				log.Debug.Printf("%s: dropping read: %v", path, err)
				return nil, false, nil
			}
			return nil, false, err
		}
		return r, true, nil
	}
	es, err := engine.Read(ctx, bamFormat{}, path, s.engineOpts(), transform)
	if err != nil {
		return nil, err
	}
	return &Stream{s: es}, nil
}

// AllReads streams every valid placed read of the BAM shards under path. It
// resolves the dataset's header and filters with one whole-reference interval
// per sequence-dictionary entry, so unmapped reads with no placement
// coordinate are excluded.
func (s *Source) AllReads(ctx context.Context, path string) (*Stream, error) {
	header, err := ResolveHeader(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.Reads(ctx, path, interval.AllFromHeader(header))
}

// ColumnarReads streams every read of the columnar shards under path. No
// interval filtering or validation is applied: columnar shards are written
// from already-validated reads. If header is non-nil it is broadcast to the
// yielded reads for reference-name resolution and released when the stream
// is closed.
func (s *Source) ColumnarReads(ctx context.Context, path string, header *sam.Header) (*Stream, error) {
	var b engine.Broadcast
	if header != nil {
		b = engine.NewBroadcast(header)
	}
	transform := func(v interface{}) (interface{}, bool, error) {
		return FromColumnar(v.(*colfmt.Record), b), true, nil
	}
	es, err := engine.Read(ctx, colFormat{}, path, s.engineOpts(), transform)
	if err != nil {
		if header != nil {
			b.Release()
		}
		return nil, err
	}
	if header != nil {
		es.Defer(b.Release)
	}
	return &Stream{s: es}, nil
}

func (s *Source) engineOpts() engine.Opts {
	return engine.Opts{
		MaxSplitBytes: s.opts.MaxSplitBytes,
		Parallelism:   s.opts.Parallelism,
		QueueSize:     s.opts.QueueSize,
	}
}
