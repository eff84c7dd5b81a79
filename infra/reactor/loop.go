package reactor

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
)

// Loop is the single cooperative thread all completions run on.
// Hub state is only ever touched from tasks executing inside Run.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

func NewLoop(depth int) *Loop {
	if depth <= 0 {
		depth = 1024
	}
	return &Loop{
		tasks: make(chan func(), depth),
		done:  make(chan struct{}),
	}
}

// Post schedules fn on the loop. It blocks while the queue is full and
// returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case <-l.done:
		return false
	case l.tasks <- fn:
		return true
	}
}

// Run executes posted tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Pending reports how many tasks are queued.
func (l *Loop) Pending() int {
	return len(l.tasks)
}

// exec keeps a panicking completion from taking the loop down.
func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[loop] task panicked: %v\n%s", r, debug.Stack())
		}
	}()
	fn()
}
