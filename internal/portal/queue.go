package portal

import "context"

// Queue hands work to the render thread, which runs it with Drain at the
// start of every frame.
type Queue struct {
	ch chan func()
}

func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan func(), size)}
}

// Post queues fn without waiting for it to run. It blocks while the queue
// is full or until ctx is done.
func (q *Queue) Post(ctx context.Context, fn func()) error {
	select {
	case q.ch <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do queues fn and waits for its result.
func (q *Queue) Do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	if err := q.Post(ctx, func() { res <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs everything queued so far and reports how many ran.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case fn := <-q.ch:
			fn()
			n++
		default:
			return n
		}
	}
}
