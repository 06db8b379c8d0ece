package typeutil

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	set := NewSet("A1", "A2")
	assert.True(t, set.Contain("A1"))
	assert.True(t, set.Contain("A1", "A2"))
	assert.False(t, set.Contain("A1", "A3"))

	set.Insert("A2", "A3")
	assert.Equal(t, 3, set.Len())

	cloned := set.Clone()
	set.Remove("A1")
	assert.False(t, set.Contain("A1"))
	assert.True(t, cloned.Contain("A1"))

	elements := cloned.Collect()
	sort.Strings(elements)
	assert.Equal(t, []string{"A1", "A2", "A3"}, elements)
}

func TestConcurrentSet(t *testing.T) {
	set := NewConcurrentSet[int]()

	var wg sync.WaitGroup
	inserted := make([]bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inserted[i] = set.Insert(42)
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range inserted {
		if ok {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.True(t, set.Contain(42))
	assert.Equal(t, []int{42}, set.Collect())
}
