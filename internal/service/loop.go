package service

import "sync"

// Loop serializes every store mutation and view notification, standing in for
// a UI thread. Work posted after Close is dropped.
type Loop struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup // goroutines started by Go
}

// NewLoop returns an open loop.
func NewLoop() *Loop {
	return &Loop{}
}

// Post runs fn while holding the loop. It reports false, without running fn,
// once the loop is closed. fn must not call Post.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	fn()
	return true
}

// Close stops accepting work. When Close returns no posted fn is running and
// none will run again.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

// Closed reports whether Close has been called.
func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Go runs fn on a new goroutine tracked by Wait. It reports false, without
// starting fn, once the loop is closed. The closed check and the WaitGroup
// increment share the loop's lock, so after Close nothing new is counted.
func (l *Loop) Go(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
	return true
}

// Wait blocks until every fn started by Go has returned.
func (l *Loop) Wait() {
	l.wg.Wait()
}
