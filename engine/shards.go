// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// ShardPrefix is the filename prefix that marks the shard files of a dataset
// written by a distributed writer. Files in a dataset directory whose
// basename does not start with this prefix (checksums, markers, and the like)
// are ignored.
const ShardPrefix = "part-"

// ListShards resolves path into the list of shard files that make up one
// logical dataset. If path names a regular file, the result is just that
// file. If it names a directory, the result is every file under it whose
// basename starts with ShardPrefix, sorted by path; an error of kind
// errors.NotExist is returned when no file matches. Any listing fault is
// returned wrapped, never raw.
//
// Paths follow the grailbio/base/file naming scheme and may refer to local
// files or S3 objects.
func ListShards(ctx context.Context, path string) ([]string, error) {
	lister := file.List(ctx, path, true)
	var shards []string
	for lister.Scan() {
		p := lister.Path()
		if p == path {
			// path denotes a regular file, not a shard directory.
			return []string{path}, nil
		}
		if strings.HasPrefix(file.Base(p), ShardPrefix) {
			shards = append(shards, p)
		}
	}
	if err := lister.Err(); err != nil {
		return nil, errors.E(err, "listshards", path)
	}
	if len(shards) == 0 {
		return nil, errors.E(errors.NotExist,
			fmt.Sprintf("listshards %s: no shard files with prefix %q", path, ShardPrefix))
	}
	sort.Strings(shards)
	return shards, nil
}
