package containers

// Mailbox is an unbounded FIFO queue with a signal channel, so that a single
// consumer goroutine can select on new elements together with other events.
//
// C receives at most one pending signal. A consumer woken by C must drain
// the mailbox with Pop until it returns false.
type Mailbox[T any] struct {
	q *Deque[T]
	C chan struct{}
}

// NewMailbox creates an empty Mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		q: NewDeque[T](),
		C: make(chan struct{}, 1),
	}
}

// Push never blocks.
func (m *Mailbox[T]) Push(elem T) {
	m.q.Push(elem)
	select {
	case m.C <- struct{}{}:
	default:
	}
}

func (m *Mailbox[T]) Pop() (T, bool) {
	return m.q.Pop()
}

func (m *Mailbox[T]) Peek() (T, bool) {
	return m.q.Peek()
}

func (m *Mailbox[T]) Size() int {
	return m.q.Size()
}
