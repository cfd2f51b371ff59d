package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// asyncWriter copies log lines to every sink from a single goroutine so
// handlers never wait on disk. A failing sink is dropped; the others keep
// receiving lines.
type asyncWriter struct {
	queue chan []byte
	flush chan chan error
	done  chan struct{}

	closeOnce sync.Once
	closedMu  sync.RWMutex
	closed    bool

	sinks []*bufio.Writer
	errMu sync.Mutex
	err   error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		queue: make(chan []byte, 256),
		flush: make(chan chan error),
		done:  make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				w.flushSinks()
				return
			}
			w.writeLine(line)
		case ack := <-w.flush:
			w.drain()
			ack <- w.flushSinks()
		}
	}
}

// drain writes whatever is already queued so Flush covers earlier Writes.
func (w *asyncWriter) drain() {
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				return
			}
			w.writeLine(line)
		default:
			return
		}
	}
}

// Write queues a copy of p. It blocks when the queue is full so lines are
// never lost, and is a no-op after Close.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	line := append([]byte(nil), p...)
	w.closedMu.RLock()
	defer w.closedMu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- line
	return nil
}

var errWriterClosed = errors.New("logger: writer closed")

// Flush waits until every queued line has reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flush <- ack:
		return errors.Join(<-ack, w.firstErr())
	case <-w.done:
		return w.firstErr()
	}
}

// Close drains the queue, flushes the sinks and reports the first sink error.
func (w *asyncWriter) Close() error {
	w.closeOnce.Do(func() {
		w.closedMu.Lock()
		w.closed = true
		close(w.queue)
		w.closedMu.Unlock()
	})
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) writeLine(line []byte) {
	kept := w.sinks[:0]
	for _, sink := range w.sinks {
		_, err := sink.Write(line)
		if err == nil {
			err = sink.Flush()
		}
		if err != nil {
			w.setErr(err)
			continue
		}
		kept = append(kept, sink)
	}
	w.sinks = kept
}

func (w *asyncWriter) flushSinks() error {
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *asyncWriter) setErr(err error) {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
