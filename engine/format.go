// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package engine

import "context"

// Split is one bounded unit of work produced by Format.Plan: a contiguous
// region of one shard file small enough to decode within a single worker's
// memory budget. Concrete split types are defined by each Format; the engine
// treats them as opaque.
type Split interface {
	// SplitPath returns the shard file this split reads from.
	SplitPath() string
	// SplitIndex returns the position of this split in plan order. Indexes
	// are dense and start at zero.
	SplitIndex() int
}

// Records iterates over the raw records of one split, in on-disk order.
// Thread compatible.
type Records interface {
	// Scan advances to the next record, returning false at the end of the
	// split or on error.
	Scan() bool
	// Record returns the current raw record. Valid only after Scan returns
	// true. The returned value may be reused or retained at the format's
	// discretion; callers consume it before the next Scan.
	Record() interface{}
	// Err returns the error encountered during iteration, if any. io.EOF is
	// not an error.
	Err() error
	// Close must be called exactly once. It returns the value of Err().
	Close() error
}

// Format describes one on-disk representation readable by the engine: how to
// partition a dataset into bounded splits and how to decode one split's raw
// records.
type Format interface {
	// Plan lists the dataset's shard files and divides them into splits of at
	// most maxSplitBytes on-disk bytes each, where the format permits
	// record-aligned division. A shard that cannot be divided becomes a
	// single split.
	Plan(ctx context.Context, path string, maxSplitBytes int64) ([]Split, error)

	// Open returns an iterator over the raw records of one split previously
	// returned by Plan.
	Open(ctx context.Context, split Split) (Records, error)
}

// Transform maps one raw record to at most one output record. Returning
// ok=false drops the record. A non-nil error aborts the whole read operation;
// per-record recoverable faults must be handled inside the transform.
type Transform func(rec interface{}) (out interface{}, ok bool, err error)
