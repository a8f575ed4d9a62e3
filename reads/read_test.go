package reads_test

import (
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/readsource/encoding/colfmt"
	"github.com/grailbio/readsource/engine"
	"github.com/grailbio/readsource/reads"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestFromSAM(t *testing.T) {
	rec := newRec("frag", chr1, 149, cigar10M, sam.Paired)
	rec.Seq = sam.NewSeq([]byte("ACGTACGTAC"))
	rec.Qual = []byte("IIIIIIIIII")
	rec.MapQ = 37
	r, err := reads.FromSAM(rec)
	require.NoError(t, err)
	expect.EQ(t, r.Kind(), reads.SAM)
	expect.EQ(t, r.Name(), "frag")
	expect.EQ(t, r.RefName(), "chr1")
	expect.EQ(t, r.Start(), 150)
	expect.EQ(t, r.End(), 159)
	expect.EQ(t, r.MapQ(), byte(37))
	expect.False(t, r.Unmapped())
	expect.True(t, r.SAM() == rec)
	expect.True(t, r.Columnar() == nil)
}

func TestFromSAMNoCoordinate(t *testing.T) {
	rec := newRec("frag", nil, -1, nil, sam.Unmapped)
	r, err := reads.FromSAM(rec)
	require.NoError(t, err)
	expect.EQ(t, r.RefName(), "*")
	expect.EQ(t, r.Start(), 0)
	expect.EQ(t, r.End(), 0)
	expect.True(t, r.Unmapped())
}

func TestFromSAMMalformed(t *testing.T) {
	for _, tt := range []struct {
		name string
		mod  func(rec *sam.Record)
	}{
		{"empty name", func(rec *sam.Record) { rec.Name = "" }},
		{"overlong name", func(rec *sam.Record) { rec.Name = strings.Repeat("x", 255) }},
		{"seq qual mismatch", func(rec *sam.Record) {
			rec.Seq = sam.NewSeq([]byte("ACGT"))
			rec.Qual = []byte("II")
		}},
		{"negative position", func(rec *sam.Record) { rec.Pos = -2 }},
		{"truncated aux", func(rec *sam.Record) { rec.AuxFields = []sam.Aux{sam.Aux("X")} }},
		{"unknown aux type", func(rec *sam.Record) { rec.AuxFields = []sam.Aux{sam.Aux("XXqabc")} }},
	} {
		rec := newRec("frag", chr1, 149, cigar10M, 0)
		tt.mod(rec)
		_, err := reads.FromSAM(rec)
		require.Error(t, err, tt.name)
		expect.True(t, reads.IsMalformed(err))
	}

	// A record with no quality string at all is fine.
	rec := newRec("frag", chr1, 149, cigar10M, 0)
	rec.Seq = sam.NewSeq([]byte("ACGT"))
	_, err := reads.FromSAM(rec)
	expect.NoError(t, err)
}

func TestFromColumnar(t *testing.T) {
	col := colfmt.FromSAM(newRec("frag", chr2, 999, cigar10M, sam.Paired))
	b := engine.NewBroadcast(testHeader)
	r := reads.FromColumnar(col, b)
	expect.EQ(t, r.Kind(), reads.Columnar)
	expect.EQ(t, r.Name(), "frag")
	expect.EQ(t, r.RefName(), "chr2")
	expect.EQ(t, r.Start(), 1000)
	expect.EQ(t, r.End(), 1009)
	expect.True(t, r.Columnar() == col)
	expect.True(t, r.SAM() == nil)

	// After release, or with the zero broadcast, the name degrades to "*".
	b.Release()
	expect.EQ(t, r.RefName(), "*")
	r = reads.FromColumnar(col, engine.Broadcast{})
	expect.EQ(t, r.RefName(), "*")
	expect.EQ(t, r.Start(), 1000)
}
