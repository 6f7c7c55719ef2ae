package autoid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDAllocatorIncreasing(t *testing.T) {
	t.Parallel()

	a := NewIDAllocator(10)
	require.Equal(t, int64(11), a.AllocID())
	require.Equal(t, int64(12), a.AllocID())
}

func TestIDAllocatorConcurrent(t *testing.T) {
	t.Parallel()

	a := NewIDAllocator(0)
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
		wg   sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := a.AllocID()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, 1000)
}

func TestUUIDAllocator(t *testing.T) {
	t.Parallel()

	a := NewUUIDAllocator()
	require.NotEqual(t, a.AllocID(), a.AllocID())
}
