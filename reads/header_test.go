package reads_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/readsource/reads"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestResolveHeader(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// The shards of one dataset share a header; give the second shard a
	// different one to prove the first sorted shard is consulted.
	chrOther, err := sam.NewReference("chrOther", "", "", 500, nil, nil)
	require.NoError(t, err)
	otherHeader, err := sam.NewHeader(nil, []*sam.Reference{chrOther})
	require.NoError(t, err)

	writeBAM(t, filepath.Join(dir, "part-00000"), testHeader)
	writeBAM(t, filepath.Join(dir, "part-00001"), otherHeader)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_SUCCESS"), nil, 0600))

	header, err := reads.ResolveHeader(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, 2, len(header.Refs()))
	expect.EQ(t, header.Refs()[0].Name(), "chr1")
	expect.EQ(t, header.Refs()[0].Len(), 1000)
}

func TestResolveHeaderSingleFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reads.bam")
	writeBAM(t, path, testHeader)

	header, err := reads.ResolveHeader(ctx, path)
	require.NoError(t, err)
	expect.EQ(t, len(header.Refs()), 2)
}

func TestResolveHeaderNoShards(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_SUCCESS"), nil, 0600))

	_, err := reads.ResolveHeader(ctx, dir)
	require.Error(t, err)
	expect.True(t, errors.Is(errors.NotExist, err))
}

func TestResolveHeaderCorruptShard(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "part-00000"), []byte("not a bam"), 0600))

	_, err := reads.ResolveHeader(ctx, dir)
	require.Error(t, err)
	expect.False(t, errors.Is(errors.NotExist, err))
}
