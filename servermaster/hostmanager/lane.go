package hostmanager

import (
	"sync"

	"github.com/pingcap/failpoint"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/containers"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// message is a request of a caller or an event sent by the manager to itself.
type message struct {
	name string
	// handle runs on the lane goroutine.
	handle func(st *laneState)
	// fail replies to the caller when handle could not.
	fail func(err error)
}

// laneState is only accessed by the goroutine of its lane.
type laneState struct {
	clusterID model.ClusterID
	// generation changes with every provision and delete, so that a late
	// provisioning outcome can tell whether it is still current.
	generation uint64
	status     *model.ProvisionStatus
	// provisionings whose outcome has not come back yet
	inflight int
}

// idle reports whether the state can be dropped.
func (st *laneState) idle() bool {
	return st.status == nil && st.inflight == 0
}

// lane applies the messages of one cluster in order.
type lane struct {
	state   laneState
	mailbox *containers.Mailbox[*message]

	mu      sync.Mutex
	closed  bool
	retired bool

	closeCh chan struct{}
	doneCh  chan struct{}
}

func newLane(clusterID model.ClusterID) *lane {
	return &lane{
		state:   laneState{clusterID: clusterID},
		mailbox: containers.NewMailbox[*message](),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// push reports false if the lane is closed or retired.
func (l *lane) push(msg *message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.retired {
		return false
	}
	l.mailbox.Push(msg)
	return true
}

// retire stops the lane from accepting messages if its mailbox is empty.
func (l *lane) retire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.mailbox.Size() > 0 {
		return false
	}
	l.retired = true
	return true
}

// run handles messages until the lane is closed, or until it is idle and
// retire agrees to drop it.
func (l *lane) run(retire func(l *lane) bool) {
	defer close(l.doneCh)
	for {
		select {
		case <-l.closeCh:
			for {
				msg, ok := l.mailbox.Pop()
				if !ok {
					return
				}
				msg.fail(errors.ErrHostManagerClosed.GenWithStackByArgs())
			}
		case <-l.mailbox.C:
			for {
				msg, ok := l.mailbox.Pop()
				if !ok {
					break
				}
				l.handle(msg)
			}
			if l.state.idle() && retire(l) {
				return
			}
		}
	}
}

// handle converts a panic into a failure of the one message.
func (l *lane) handle(msg *message) {
	defer func() {
		if v := recover(); v != nil {
			log.L().Error("host manager message panicked",
				zap.String("cluster-id", string(l.state.clusterID)),
				zap.String("message", msg.name),
				zap.Any("panic", v),
				zap.Stack("stack"))
			msg.fail(errors.ErrRequestPanicked.GenWithStackByArgs(msg.name, v))
		}
	}()

	failpoint.Inject("hostManagerHandlePanic", func() {
		panic("injected panic in " + msg.name)
	})
	msg.handle(&l.state)
}

func (l *lane) close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	close(l.closeCh)
	<-l.doneCh
}
