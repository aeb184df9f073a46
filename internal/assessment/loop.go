package assessment

import "sync"

// eventLoop runs posted functions one at a time on a single goroutine. All
// orchestrator state is touched only from inside it.
type eventLoop struct {
	queue chan func()
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newEventLoop() *eventLoop {
	l := &eventLoop{
		queue: make(chan func(), 64),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *eventLoop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

// post queues fn; it reports false once the loop is closed.
func (l *eventLoop) post(fn func()) bool {
	select {
	case <-l.stop:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.stop:
		return false
	}
}

func (l *eventLoop) close() {
	l.once.Do(func() { close(l.stop) })
}
