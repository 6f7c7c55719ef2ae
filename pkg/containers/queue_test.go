package containers

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func testQueueBasics(t *testing.T, q Queue[int]) {
	_, ok := q.Pop()
	require.False(t, ok)
	_, ok = q.Peek()
	require.False(t, ok)

	for i := 0; i < 100; i++ {
		q.Push(i)
	}
	require.Equal(t, 100, q.Size())

	v, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, 0, v)

	for i := 0; i < 100; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	require.Equal(t, 0, q.Size())
}

func TestDequeBasics(t *testing.T) {
	t.Parallel()
	testQueueBasics(t, NewDeque[int]())
}

func TestMailboxBasics(t *testing.T) {
	t.Parallel()
	testQueueBasics(t, NewMailbox[int]())
}

func TestMailboxSignal(t *testing.T) {
	t.Parallel()

	m := NewMailbox[int]()
	m.Push(1)
	m.Push(2)
	// signals coalesce
	<-m.C
	select {
	case <-m.C:
		require.FailNow(t, "unexpected second signal")
	default:
	}
	require.Equal(t, 2, m.Size())
}

func TestMailboxConcurrentProducers(t *testing.T) {
	t.Parallel()

	const (
		producers = 8
		perProd   = 1000
	)
	m := NewMailbox[int]()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				m.Push(p*perProd + i)
			}
		}(p)
	}

	lastSeen := make(map[int]int)
	received := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	drain := func() {
		for {
			v, ok := m.Pop()
			if !ok {
				return
			}
			p := v / perProd
			if last, ok := lastSeen[p]; ok {
				require.Less(t, last, v)
			}
			lastSeen[p] = v
			received++
		}
	}
	for {
		select {
		case <-m.C:
			drain()
		case <-done:
			drain()
			require.Equal(t, producers*perProd, received)
			return
		}
	}
}
