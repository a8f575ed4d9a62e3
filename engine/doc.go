// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package engine implements a process-local, data-parallel partitioned read:
// a Format plans bounded-size splits for a sharded dataset and opens raw
// record iterators for them, and Read fans the splits out over a fixed worker
// pool, applying a per-record transform and delivering the results through a
// pull-based Stream. The package also provides the broadcast mechanism used
// to share one immutable value (typically a header) read-only across all
// workers of one operation, and the shard-listing convention for datasets
// written as part-* file sets.
//
// Records are delivered in input order within one split; no order is
// guaranteed across splits.
package engine
