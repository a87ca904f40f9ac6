package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedGUIDGenerator_ReturnsInOrder(t *testing.T) {
	gen := NewFixedGUIDGenerator("a", "b")

	assert.Equal(t, "a", gen.NewGUID())
	assert.Equal(t, "b", gen.NewGUID())
	assert.Panics(t, func() { gen.NewGUID() })
}

func TestSequenceGUIDGenerator(t *testing.T) {
	gen := NewSequenceGUIDGenerator("")

	assert.Equal(t, "guid-0001", gen.NewGUID())
	assert.Equal(t, "guid-0002", gen.NewGUID())

	gen.Reset()
	assert.Equal(t, "guid-0001", gen.NewGUID())
}

func TestSequenceGUIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceGUIDGenerator("g")

	var wg sync.WaitGroup
	seen := make(chan string, 1000)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				seen <- gen.NewGUID()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]bool)
	for g := range seen {
		unique[g] = true
	}
	assert.Len(t, unique, 1000)
}

func TestIFCFixtureBuilds(t *testing.T) {
	table := IFC()
	assert.Equal(t, "IFC4", table.Name())
	assert.True(t, table.IsSubtypeOf("IfcWall", "IfcRoot"))
}
