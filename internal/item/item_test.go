package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindNames(t *testing.T) {
	for _, k := range []Kind{KindDirt, KindGrass, KindStone, KindWater, KindPickaxe} {
		got, ok := ParseKind(k.String())
		assert.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("none")
	assert.False(t, ok)
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()

	dirt, ok := c.Lookup(KindDirt)
	require.True(t, ok)
	assert.True(t, dirt.IsBlock())
	assert.Equal(t, DefaultBlockStack, dirt.StackLimit)

	pick, ok := c.ByName("pickaxe")
	require.True(t, ok)
	assert.True(t, pick.IsTool())
	assert.False(t, pick.IsBlock())
	assert.Equal(t, 1, pick.StackLimit)

	cat, name := pick.ResourceName()
	assert.Equal(t, CategoryPlayer, cat)
	assert.Equal(t, "idle", name)
	cat, name = dirt.ResourceName()
	assert.Equal(t, CategoryTiles, cat)
	assert.Equal(t, "dirt", name)

	all := c.All()
	require.Len(t, all, 5)
	assert.Equal(t, KindDirt, all[0].Kind)
	assert.Equal(t, KindPickaxe, all[4].Kind)

	assert.True(t, Item{}.IsEmpty())
	assert.Panics(t, func() { c.MustLookup(KindNone) })

	c.Register(Item{Kind: KindWater, Category: CategoryTiles, Type: TypeBlock})
	water := c.MustLookup(KindWater)
	assert.Equal(t, 1, water.StackLimit, "нулевой лимит стака поднимается до 1")
}
