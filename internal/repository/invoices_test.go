package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnyString(t *testing.T) {
	require.Nil(t, anyString(nil))
	require.Nil(t, anyString(""))
	require.Nil(t, anyString(map[string]any{}))

	assert.Equal(t, "abc", *anyString("abc"))
	assert.Equal(t, "12.5", *anyString(12.5))
	assert.Equal(t, "7", *anyString(7))
}

func TestAnyFloat(t *testing.T) {
	require.Nil(t, anyFloat(nil))
	require.Nil(t, anyFloat("not a number"))

	assert.Equal(t, 12.5, *anyFloat(12.5))
	assert.Equal(t, 7.0, *anyFloat(7))
	assert.Equal(t, 7.0, *anyFloat(int64(7)))
	assert.Equal(t, 99.9, *anyFloat("99.9"))
}

func TestAnyInt(t *testing.T) {
	require.Nil(t, anyInt(nil))
	require.Nil(t, anyInt("3"))

	assert.Equal(t, 3, *anyInt(3))
	assert.Equal(t, 3, *anyInt(int64(3)))
	assert.Equal(t, 3, *anyInt(3.0))
}
