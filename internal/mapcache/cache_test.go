package mapcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cortexmap/cortex/internal/mapmodel"
)

func testMap(domain string) *mapmodel.Map {
	return &mapmodel.Map{Domain: domain, CreatedAt: time.Now(), URL: []string{"https://" + domain + "/"}}
}

func TestPutAndGetFreshEntry(t *testing.T) {
	c, err := New(0, time.Hour, zap.NewNop())
	require.NoError(t, err)

	c.Put("example.com", testMap("example.com"), 1024)

	m, fresh, exists := c.Get("example.com")
	require.True(t, exists)
	assert.True(t, fresh)
	assert.Equal(t, "example.com", m.Domain)
}

func TestGetMissingEntry(t *testing.T) {
	c, err := New(0, time.Hour, zap.NewNop())
	require.NoError(t, err)

	_, _, exists := c.Get("nowhere.example")
	assert.False(t, exists)
}

func TestEntryStaleAfterMaxAge(t *testing.T) {
	c, err := New(0, time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	c.Put("slow.example", testMap("slow.example"), 64)
	time.Sleep(5 * time.Millisecond)

	_, fresh, exists := c.Get("slow.example")
	require.True(t, exists)
	assert.False(t, fresh)
}

func TestByteBudgetEvictsOldest(t *testing.T) {
	c, err := New(100, 0, zap.NewNop())
	require.NoError(t, err)

	c.Put("a.example", testMap("a.example"), 60)
	c.Put("b.example", testMap("b.example"), 60)

	_, _, aExists := c.Get("a.example")
	_, _, bExists := c.Get("b.example")
	assert.False(t, aExists)
	assert.True(t, bExists)
	assert.LessOrEqual(t, c.UsedBytes(), int64(100))
}

func TestDeleteRemovesEntry(t *testing.T) {
	c, err := New(0, 0, zap.NewNop())
	require.NoError(t, err)

	c.Put("gone.example", testMap("gone.example"), 32)
	c.Delete("gone.example")

	_, _, exists := c.Get("gone.example")
	assert.False(t, exists)
	assert.Equal(t, int64(0), c.UsedBytes())
}

func TestLenReflectsEntryCount(t *testing.T) {
	c, err := New(0, 0, zap.NewNop())
	require.NoError(t, err)

	c.Put("one.example", testMap("one.example"), 16)
	c.Put("two.example", testMap("two.example"), 16)
	assert.Equal(t, 2, c.Len())
}

func TestClearEmptiesCache(t *testing.T) {
	c, err := New(0, 0, zap.NewNop())
	require.NoError(t, err)

	c.Put("a.example", testMap("a.example"), 16)
	c.Put("b.example", testMap("b.example"), 16)
	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.UsedBytes())
}

func TestDomainsListsCachedKeys(t *testing.T) {
	c, err := New(0, 0, zap.NewNop())
	require.NoError(t, err)

	c.Put("a.example", testMap("a.example"), 16)
	c.Put("b.example", testMap("b.example"), 16)

	assert.ElementsMatch(t, []string{"a.example", "b.example"}, c.Domains())
}

func TestMaxAgeZeroNeverExpires(t *testing.T) {
	c, err := New(0, 0, zap.NewNop())
	require.NoError(t, err)

	c.Put("forever.example", testMap("forever.example"), 16)
	time.Sleep(2 * time.Millisecond)

	_, fresh, exists := c.Get("forever.example")
	require.True(t, exists)
	assert.True(t, fresh)
}
