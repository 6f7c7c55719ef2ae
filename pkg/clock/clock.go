package clock

import (
	"time"

	bclock "github.com/benbjohnson/clock"
	"github.com/gavv/monotime"
)

type (
	// Timer is re-exported so that callers do not import benbjohnson/clock.
	Timer = bclock.Timer
	// Ticker is re-exported so that callers do not import benbjohnson/clock.
	Ticker = bclock.Ticker
	// MonotonicTime is a reading of a monotonic clock, only differences are meaningful.
	MonotonicTime time.Duration
)

var unixEpoch = time.Unix(0, 0)

// Clock is the source of time of every component that has timeouts.
type Clock interface {
	bclock.Clock
	Mono() MonotonicTime
}

type withRealMono struct {
	bclock.Clock
}

func (r withRealMono) Mono() MonotonicTime {
	return MonotonicTime(monotime.Now())
}

// Mock is a Clock driven manually by tests.
type Mock struct {
	*bclock.Mock
}

// Mono derives the monotonic reading from the mocked wall clock.
func (r Mock) Mono() MonotonicTime {
	return MonotonicTime(r.Now().Sub(unixEpoch))
}

// New returns the real clock.
func New() Clock {
	return withRealMono{bclock.New()}
}

// NewMock returns a mocked clock that starts at the unix epoch.
func NewMock() *Mock {
	return &Mock{bclock.NewMock()}
}

// Sub returns m - other.
func (m MonotonicTime) Sub(other MonotonicTime) time.Duration {
	return time.Duration(m - other)
}

// Milliseconds returns the reading in milliseconds.
func (m MonotonicTime) Milliseconds() int64 {
	return time.Duration(m).Milliseconds()
}

// MonoNow reads the real monotonic clock.
func MonoNow() MonotonicTime {
	return MonotonicTime(monotime.Now())
}

// ToMono converts a wall clock time to a MonotonicTime.
func ToMono(t time.Time) MonotonicTime {
	return MonotonicTime(t.Sub(unixEpoch))
}
