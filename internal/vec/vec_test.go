package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2_ChunkCoords(t *testing.T) {
	cases := []struct {
		tile, chunk, local Vec2
	}{
		{Vec2{0, 0}, Vec2{0, 0}, Vec2{0, 0}},
		{Vec2{15, 16}, Vec2{0, 1}, Vec2{15, 0}},
		{Vec2{-1, -16}, Vec2{-1, -1}, Vec2{15, 0}},
		{Vec2{-17, 33}, Vec2{-2, 2}, Vec2{15, 1}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.chunk, tc.tile.ToChunkCoords(), "%v", tc.tile)
		assert.Equal(t, tc.local, tc.tile.LocalInChunk(), "%v", tc.tile)
		assert.Equal(t, tc.tile, tc.chunk.ChunkOrigin().Add(tc.local), "%v", tc.tile)
	}
}

func TestVec2Float(t *testing.T) {
	p := Vec2Float{X: -1, Y: 63.9}
	assert.Equal(t, Vec2{X: -1, Y: 1}, p.ToTile(32))
	assert.Equal(t, Vec2Float{X: 64, Y: -32}, FromTile(Vec2{X: 2, Y: -1}, 32))

	v := Vec2Float{X: 3, Y: 4}
	assert.Equal(t, 5.0, v.Length())
	assert.InDelta(t, 1.0, v.Normalized().Length(), 1e-9)
	assert.Equal(t, Vec2Float{}, Vec2Float{}.Normalized())
	assert.Equal(t, 5.0, Vec2Float{}.DistanceTo(v))
	assert.Equal(t, Vec2Float{X: 1.5, Y: 2}, Vec2Float{}.Lerp(v, 0.5))
	assert.Equal(t, Vec2Float{X: 6, Y: 8}, v.Mul(2))
	assert.Equal(t, Vec2Float{}, v.Sub(v))
	assert.Equal(t, 5.0, Vec2{X: 0, Y: 0}.DistanceTo(Vec2{X: 3, Y: 4}))
}
