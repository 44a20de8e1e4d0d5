package recordid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeContains(t *testing.T) {
	r := Range{Start: 5, End: 10}
	assert.False(t, r.Contains(4))
	assert.True(t, r.Contains(5))
	assert.True(t, r.Contains(9))
	assert.False(t, r.Contains(10))
}

func TestString(t *testing.T) {
	assert.Equal(t, "record(42)", ID(42).String())
}
