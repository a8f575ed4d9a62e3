package bai

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/grailbio/hts/bgzf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type indexBuilder struct {
	buf bytes.Buffer
}

func (b *indexBuilder) put(v interface{}) {
	if err := binary.Write(&b.buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

func voffset(file int64, block uint16) uint64 {
	return uint64(file)<<16 | uint64(block)
}

func TestReadOffsets(t *testing.T) {
	b := &indexBuilder{}
	b.buf.Write([]byte("BAI\x01"))
	b.put(int32(2)) // two references

	// Ref 0: one content bin with two chunks, plus the metadata pseudo-bin,
	// plus one linear interval duplicating a chunk begin.
	b.put(int32(2)) // bins
	b.put(uint32(4681))
	b.put(int32(2)) // chunks
	b.put(voffset(100, 5))
	b.put(voffset(200, 0))
	b.put(voffset(300, 0))
	b.put(voffset(400, 0))
	b.put(uint32(37450)) // metadata bin: must be ignored
	b.put(int32(2))
	b.put(voffset(9000, 0))
	b.put(voffset(9100, 0))
	b.put(uint64(10))
	b.put(uint64(2))
	b.put(int32(1)) // intervals
	b.put(voffset(100, 5))

	// Ref 1: no bins, one interval.
	b.put(int32(0))
	b.put(int32(1))
	b.put(voffset(50, 0))

	got, err := ReadOffsets(&b.buf)
	require.NoError(t, err)
	assert.Equal(t, []bgzf.Offset{
		{File: 50, Block: 0},
		{File: 100, Block: 5},
		{File: 300, Block: 0},
	}, got)
}

func TestReadOffsetsBadMagic(t *testing.T) {
	_, err := ReadOffsets(bytes.NewReader([]byte("BAM\x01\x00\x00\x00\x00")))
	require.Error(t, err)
}
