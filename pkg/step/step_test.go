package step

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNarrowBuildsDelimitedPath(t *testing.T) {
	p := Root.Narrow("query").Narrow("sort").Narrow("bit-0")
	assert.Equal(t, "query/sort/bit-0", p.String())
	assert.Equal(t, 3, p.Depth())
}

func TestRootDepthIsZero(t *testing.T) {
	assert.Equal(t, 0, Root.Depth())
	assert.Equal(t, "", Root.String())
}

func TestEqualPathsShareInternedString(t *testing.T) {
	a := Root.Narrow("x").Narrow("y")
	b := Root.Narrow("x").Narrow("y")
	assert.Equal(t, a, b)
	assert.Equal(t, a.String(), b.String())
}

func TestBytesMatchesString(t *testing.T) {
	p := Root.Narrow("a").Narrow("b")
	assert.Equal(t, p.String(), string(p.Bytes()))
}

func TestNarrowConcurrentSafe(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = Root.Narrow("concurrent").Narrow("leaf")
		}(i)
	}
	wg.Wait()
}
