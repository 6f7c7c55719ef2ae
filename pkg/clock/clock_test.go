package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMockMono(t *testing.T) {
	t.Parallel()

	clk := NewMock()
	start := clk.Mono()
	clk.Add(3 * time.Second)
	require.Equal(t, 3*time.Second, clk.Mono().Sub(start))
	require.Equal(t, int64(3000), clk.Mono().Milliseconds()-start.Milliseconds())
}

func TestRealMonoIsMonotonic(t *testing.T) {
	t.Parallel()

	clk := New()
	a := clk.Mono()
	b := MonoNow()
	require.GreaterOrEqual(t, b.Sub(a), time.Duration(0))
}

func TestToMono(t *testing.T) {
	t.Parallel()

	require.Equal(t, MonotonicTime(time.Second), ToMono(time.Unix(1, 0)))
}
