package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawei7/biblereader/internal/models"
)

func TestCache_Compile(t *testing.T) {
	c, err := NewCache(2)
	require.NoError(t, err)

	a := c.Compile("Gott", models.ModeAll, Options{})
	b := c.Compile("Gott", models.ModeAll, Options{})
	assert.Same(t, a, b)

	cs := c.Compile("Gott", models.ModeAll, Options{CaseSensitive: true})
	assert.NotSame(t, a, cs)
	assert.Equal(t, 2, c.Len())

	assert.Nil(t, c.Compile("  ", models.ModeAll, Options{}))
	assert.Equal(t, 2, c.Len(), "cache is bounded")
}

func TestNewCache_InvalidSize(t *testing.T) {
	_, err := NewCache(0)
	assert.Error(t, err)
}
