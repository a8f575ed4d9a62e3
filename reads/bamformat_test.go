package reads

import (
	"math"
	"testing"

	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/readsource/encoding/colfmt"
	"github.com/grailbio/readsource/engine"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestPlanBAMShard(t *testing.T) {
	const mb = 1 << 20
	offsets := []bgzf.Offset{
		{File: 100},
		{File: 4*mb + 100, Block: 7},
		{File: 5 * mb},
		{File: 9 * mb},
	}
	splits := planBAMShard("s", offsets, 4*mb, nil)
	require.Equal(t, 3, len(splits))
	s0 := splits[0].(bamSplit)
	expect.EQ(t, s0.start, bgzf.Offset{})
	expect.EQ(t, s0.limit, bgzf.Offset{File: 4*mb + 100, Block: 7})
	s1 := splits[1].(bamSplit)
	expect.EQ(t, s1.start, bgzf.Offset{File: 4*mb + 100, Block: 7})
	expect.EQ(t, s1.limit, bgzf.Offset{File: 9 * mb})
	s2 := splits[2].(bamSplit)
	expect.EQ(t, s2.start, bgzf.Offset{File: 9 * mb})
	expect.EQ(t, s2.limit, bgzf.Offset{File: math.MaxInt64})
	for i, s := range splits {
		expect.EQ(t, s.SplitIndex(), i)
		expect.EQ(t, s.SplitPath(), "s")
	}

	// Without an index the shard cannot be divided.
	splits = planBAMShard("s", nil, 4*mb, nil)
	require.Equal(t, 1, len(splits))
	expect.EQ(t, splits[0].(bamSplit).start, bgzf.Offset{})
	expect.EQ(t, splits[0].(bamSplit).limit, bgzf.Offset{File: math.MaxInt64})

	// Split indexes continue across shards.
	splits = planBAMShard("s2", nil, 4*mb, splits)
	require.Equal(t, 2, len(splits))
	expect.EQ(t, splits[1].SplitIndex(), 1)
	expect.EQ(t, splits[1].SplitPath(), "s2")
}

func TestPlanColShard(t *testing.T) {
	const mb = 1 << 20
	blocks := []colfmt.BlockInfo{
		{Offset: 0, NumRecords: 5},
		{Offset: 3 * mb, NumRecords: 5},
		{Offset: 6 * mb, NumRecords: 5},
		{Offset: 7 * mb, NumRecords: 2},
	}
	splits := planColShard("s", blocks, 4*mb, nil)
	require.Equal(t, 2, len(splits))
	expect.EQ(t, splits[0].(colSplit), colSplit{path: "s", index: 0, startBlock: 0, numBlocks: 2})
	expect.EQ(t, splits[1].(colSplit), colSplit{path: "s", index: 1, startBlock: 2, numBlocks: 2})

	expect.EQ(t, len(planColShard("s", nil, 4*mb, nil)), 0)

	var splits2 []engine.Split
	splits2 = planColShard("a", blocks[:1], 4*mb, splits2)
	splits2 = planColShard("b", blocks[:1], 4*mb, splits2)
	require.Equal(t, 2, len(splits2))
	expect.EQ(t, splits2[1].(colSplit).index, 1)
}
