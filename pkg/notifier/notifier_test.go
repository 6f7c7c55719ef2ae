package notifier

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifierBasics(t *testing.T) {
	n := NewNotifier[int]()
	defer n.Close()

	const (
		numReceivers = 10
		numEvents    = 100000
		finEv        = math.MaxInt
	)
	var wg sync.WaitGroup

	for i := 0; i < numReceivers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r := n.NewReceiver()
			defer r.Close()

			var ev, lastEv int
			for {
				select {
				case ev = <-r.C:
				}

				if ev == finEv {
					return
				}

				if lastEv != 0 {
					require.Equal(t, lastEv+1, ev)
				}
				lastEv = ev
			}
		}()
	}

	for i := 1; i <= numEvents; i++ {
		n.Notify(i)
	}

	n.Notify(finEv)
	err := n.Flush(context.Background())
	require.NoError(t, err)

	wg.Wait()
}

func TestNotifierCloseClosesReceivers(t *testing.T) {
	n := NewNotifier[string]()
	r := n.NewReceiver()

	n.Notify("registered")
	require.NoError(t, n.Flush(context.Background()))
	require.Equal(t, "registered", <-r.C)

	n.Close()
	_, ok := <-r.C
	require.False(t, ok)
	// Closing twice is allowed.
	n.Close()
	r.Close()
}

func TestFlushCanceled(t *testing.T) {
	n := NewNotifier[int]()
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Either the barrier or the cancellation wins, but Flush must return.
	_ = n.Flush(ctx)
}
