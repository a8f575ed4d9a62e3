package colfmt

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func newTestHeader(t *testing.T) *sam.Header {
	chr1, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	chr2, err := sam.NewReference("chr2", "", "", 2000, nil, nil)
	require.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{chr1, chr2})
	require.NoError(t, err)
	return header
}

func newTestRecord(i int) *Record {
	return &Record{
		Name:         fmt.Sprintf("read%d", i),
		Flags:        sam.Paired,
		RefIndex:     0,
		Pos:          int32(100 + i),
		MapQ:         60,
		Cigar:        "10M",
		MateRefIndex: -1,
		MatePos:      -1,
		TempLen:      0,
		AlignEnd:     int32(110 + i),
		Seq:          "ACGTACGTAC",
		Qual:         []byte{30, 30, 30, 30, 30, 30, 30, 30, 30, 30},
	}
}

func writeTestShard(t *testing.T, path string, n, blockRecords int) {
	ctx := context.Background()
	w, err := NewWriter(ctx, path, newTestHeader(t), WriterOpts{BlockRecords: blockRecords})
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		w.Append(newTestRecord(i))
	}
	require.NoError(t, w.Close(ctx))
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.colfmt")
	writeTestShard(t, path, 10, 3)

	r, err := NewReader(ctx, path, ReadOpts{})
	require.NoError(t, err)
	expect.EQ(t, len(r.Header().Refs()), 2)
	expect.EQ(t, r.Header().Refs()[1].Name(), "chr2")

	index := r.BlockIndex()
	require.Equal(t, 4, len(index))
	for i, b := range index {
		if i == 3 {
			expect.EQ(t, b.NumRecords, uint32(1))
		} else {
			expect.EQ(t, b.NumRecords, uint32(3))
		}
		if i > 0 {
			expect.True(t, b.Offset > index[i-1].Offset)
		}
	}

	n := 0
	for r.Scan() {
		rec := r.Record()
		expect.EQ(t, rec, newTestRecord(n))
		n++
	}
	expect.EQ(t, n, 10)
	expect.NoError(t, r.Close(ctx))
}

func TestReadBlockRange(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.colfmt")
	writeTestShard(t, path, 10, 3)

	// Blocks 1 and 2 hold records 3 through 8.
	r, err := NewReader(ctx, path, ReadOpts{StartBlock: 1, NumBlocks: 2})
	require.NoError(t, err)
	var names []string
	for r.Scan() {
		names = append(names, r.Record().Name)
	}
	expect.EQ(t, names, []string{"read3", "read4", "read5", "read6", "read7", "read8"})
	expect.NoError(t, r.Close(ctx))

	// NumBlocks past the end reads through the last block.
	r, err = NewReader(ctx, path, ReadOpts{StartBlock: 3, NumBlocks: 100})
	require.NoError(t, err)
	n := 0
	for r.Scan() {
		n++
	}
	expect.EQ(t, n, 1)
	expect.NoError(t, r.Close(ctx))

	_, err = NewReader(ctx, path, ReadOpts{StartBlock: 5})
	require.Error(t, err)
}

func TestSnappyRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snappy.colfmt")
	w, err := NewWriter(ctx, path, newTestHeader(t), WriterOpts{BlockRecords: 3, Snappy: true})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		w.Append(newTestRecord(i))
	}
	require.NoError(t, w.Close(ctx))

	r, err := NewReader(ctx, path, ReadOpts{})
	require.NoError(t, err)
	expect.EQ(t, len(r.BlockIndex()), 4)
	n := 0
	for r.Scan() {
		expect.EQ(t, r.Record(), newTestRecord(n))
		n++
	}
	expect.EQ(t, n, 10)
	expect.NoError(t, r.Close(ctx))
}

func TestEmptyShard(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "empty.colfmt")
	writeTestShard(t, path, 0, 3)

	r, err := NewReader(ctx, path, ReadOpts{})
	require.NoError(t, err)
	expect.EQ(t, len(r.BlockIndex()), 0)
	expect.EQ(t, len(r.Header().Refs()), 2)
	expect.False(t, r.Scan())
	expect.NoError(t, r.Close(ctx))
}

func TestFromSAM(t *testing.T) {
	header := newTestHeader(t)
	chr1 := header.Refs()[0]
	rec := &sam.Record{
		Name:    "frag1",
		Ref:     chr1,
		Pos:     149,
		MapQ:    37,
		Cigar:   []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 4)},
		MateRef: nil,
		MatePos: -1,
		Seq:     sam.NewSeq([]byte("ACGT")),
		Qual:    []byte{20, 21, 22, 23},
	}
	got := FromSAM(rec)
	expect.EQ(t, got, &Record{
		Name:         "frag1",
		RefIndex:     0,
		Pos:          149,
		MapQ:         37,
		Cigar:        "4M",
		MateRefIndex: -1,
		MatePos:      -1,
		AlignEnd:     153,
		Seq:          "ACGT",
		Qual:         []byte{20, 21, 22, 23},
	})
}
