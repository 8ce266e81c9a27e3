package cfg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertSameGraph(t *testing.T, want, got *CFGInfo) {
	t.Helper()
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.RootIDs, got.RootIDs)
	assert.Equal(t, want.Leaves(), got.Leaves())
	assert.Equal(t, want.Edges, got.Edges)
	assert.Equal(t, want.EntryBlockID, got.EntryBlockID)
	assert.Equal(t, want.ExitBlockIDs, got.ExitBlockIDs)
	assert.Equal(t, want.CyclomaticComplexity, got.CyclomaticComplexity)
	assert.Equal(t, want.Stats, got.Stats)
	require.Len(t, got.Blocks, len(want.Blocks))
	for id, b := range want.Blocks {
		g := got.Blocks[id]
		assert.Equal(t, b.Type, g.Type, id)
		assert.Equal(t, b.Parent, g.Parent, id)
		assert.Equal(t, b.Depth, g.Depth, id)
		assert.Equal(t, b.Exit, g.Exit, id)
		assert.ElementsMatch(t, b.JumpTargets, g.JumpTargets, id)
	}
}

func TestMsgpackRoundtrip(t *testing.T) {
	info, err := Export("loop", loopGraph())
	require.NoError(t, err)

	data, err := info.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assertSameGraph(t, info, got)
}

func TestJSONRoundtrip(t *testing.T) {
	info, err := Export("loop", loopGraph())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, info.WriteJSON(&buf))
	assert.Contains(t, buf.String(), `"edge_type": "back_edge"`)
	assert.Contains(t, buf.String(), `"root_ids": [`)

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assertSameGraph(t, info, got)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Unmarshal([]byte{0xc1})
	assert.Error(t, err)

	_, err = ReadJSON(strings.NewReader("{not json"))
	assert.Error(t, err)
}
