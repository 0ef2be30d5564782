// ABOUTME: Tests for the dedupe cache used to prevent duplicate event processing.
// ABOUTME: Validates TTL expiration, size limits, eviction, and concurrency safety.

package dedupe

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_CheckAndMark_New(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	assert.False(t, cache.CheckAndMark("event-1"))
	assert.True(t, cache.CheckAndMark("event-1"))
}

func TestCache_CheckAndMark_Expired(t *testing.T) {
	cache := New(20*time.Millisecond, 100)
	defer cache.Close()

	assert.False(t, cache.CheckAndMark("event-1"))
	time.Sleep(40 * time.Millisecond)

	// Expired key is new again
	assert.False(t, cache.CheckAndMark("event-1"))
	assert.True(t, cache.CheckAndMark("event-1"))
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	cache := New(5*time.Minute, 3)
	defer cache.Close()

	for i := 0; i < 4; i++ {
		cache.CheckAndMark(fmt.Sprintf("event-%d", i))
	}

	assert.Equal(t, 3, cache.Len())
	// Oldest was evicted, so it reads as new
	assert.False(t, cache.CheckAndMark("event-0"))
	// Newest is still tracked
	assert.True(t, cache.CheckAndMark("event-3"))
}

func TestCache_Sweep(t *testing.T) {
	cache := New(10*time.Millisecond, 100)
	defer cache.Close()

	for i := 0; i < 5; i++ {
		cache.CheckAndMark(fmt.Sprintf("event-%d", i))
	}
	time.Sleep(30 * time.Millisecond)
	cache.sweep()

	assert.Equal(t, 0, cache.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := New(5*time.Minute, 1000)
	defer cache.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				cache.CheckAndMark(fmt.Sprintf("g%d-event-%d", g, i))
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 800, cache.Len())
}

func TestCache_CloseTwice(t *testing.T) {
	cache := New(time.Minute, 10)
	cache.Close()
	cache.Close() // must not panic
}
