package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errOne = errors.New("one") //nolint:err113
	errTwo = errors.New("two") //nolint:err113
)

func TestCollection_Empty(t *testing.T) {
	t.Parallel()

	var c Collection

	c.Add(nil)
	c.Addf(nil, "ignored %d", 1)

	assert.False(t, c.HasError())
	assert.Zero(t, c.Len())
	assert.NoError(t, c.GetError())
}

func TestCollection_Single(t *testing.T) {
	t.Parallel()

	var c Collection

	c.Add(errOne)

	assert.Same(t, errOne, c.GetError())
}

func TestCollection_Multiple(t *testing.T) {
	t.Parallel()

	var c Collection

	c.Add(errOne)
	c.Addf(errTwo, "fix %s", "rename")

	require.Equal(t, 2, c.Len())

	err := c.GetError()
	require.ErrorIs(t, err, errOne)
	require.ErrorIs(t, err, errTwo)
	assert.Contains(t, err.Error(), "fix rename: two")

	errs := c.Errors()
	errs[0] = nil
	assert.Equal(t, errOne, c.Errors()[0])
}

func TestCollection_Clear(t *testing.T) {
	t.Parallel()

	var c Collection

	c.Add(errOne)
	c.Clear()

	assert.False(t, c.HasError())
	assert.NoError(t, c.GetError())
}
