package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// asyncWriter moves formatting output off the caller's goroutine and fans it
// out to every sink. Lines are never dropped: a full queue blocks the caller.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	stopped chan struct{}
	close   sync.Once

	mu    sync.Mutex
	sinks []*bufio.Writer
	err   error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 << 10
	}
	w := &asyncWriter{
		lines:   make(chan []byte, 256),
		flushes: make(chan chan error),
		stopped: make(chan struct{}),
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
	defer close(w.stopped)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.record(w.flush())
				return
			}
			w.record(w.emit(line))
		case ack := <-w.flushes:
			ack <- w.flush()
		}
	}
}

// Write queues a copy of p.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.failure(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush blocks until queued lines written so far reach the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.failure(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.flushes <- ack
	return <-ack
}

// Close drains the queue and returns the first write error.
func (w *asyncWriter) Close() error {
	w.close.Do(func() { close(w.lines) })
	<-w.stopped
	return w.failure()
}

func (w *asyncWriter) emit(p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if _, err := s.Write(p); err != nil {
			return err
		}
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *asyncWriter) record(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}
