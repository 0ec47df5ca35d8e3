package alphabet

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		a, err := New([]string{"_", "a", "b", " "}, 0)
		require.NoError(t, err)
		assert.Equal(t, 4, a.Size())
		assert.Equal(t, 0, a.Blank())
		assert.True(t, a.IsBlank(0))
		space, ok := a.Space()
		assert.True(t, ok)
		assert.Equal(t, 3, space)
		assert.Equal(t, "b", a.Label(2))
		assert.Equal(t, "", a.Label(7))
	})
	t.Run("Empty", func(t *testing.T) {
		_, err := New(nil, 0)
		assert.True(t, errors.Is(err, ErrEmptyAlphabet))
	})
	t.Run("Blank out of range", func(t *testing.T) {
		_, err := New([]string{"_", "a"}, 2)
		assert.True(t, errors.Is(err, ErrInvalidBlank))
		_, err = New([]string{"_", "a"}, -1)
		assert.True(t, errors.Is(err, ErrInvalidBlank))
	})
	t.Run("Labels are copied", func(t *testing.T) {
		labels := []string{"_", "a"}
		a, err := New(labels, 0)
		require.NoError(t, err)
		labels[1] = "z"
		assert.Equal(t, "a", a.Label(1))
		got := a.Labels()
		got[0] = "x"
		assert.Equal(t, "_", a.Label(0))
	})
}

func TestFromString(t *testing.T) {
	a, err := FromString("_aé ж", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"_", "a", "é", " ", "ж"}, a.Labels())
	idx, ok := a.Index("ж")
	assert.True(t, ok)
	assert.Equal(t, 4, idx)

	_, err = FromString(string([]byte{0xff, 0xfe}), 0)
	assert.True(t, errors.Is(err, ErrInvalidUTF8))
}

func TestSpaceAsBlankIsNotWordSeparator(t *testing.T) {
	a, err := New([]string{" ", "a"}, 0)
	require.NoError(t, err)
	_, ok := a.Space()
	assert.False(t, ok)
}

func TestText(t *testing.T) {
	a, err := FromString("_ab ", 0)
	require.NoError(t, err)
	assert.Equal(t, "ab ba", a.Text([]int{1, 2, 3, 0, 2, 1, -1, -1}))
}
