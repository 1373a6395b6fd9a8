package scidata

import (
	"errors"
	"io"
)

const (
	streamChunkSize = 32 * 1024
	streamDepth     = 8
)

var errStreamClosed = errors.New("encode stream closed")

// EncodeStream serializes the container concurrently. Archive bytes are
// produced by a background goroutine and handed over through a bounded
// channel, so a slow consumer throttles the producer instead of buffering
// the whole archive. A mutable container's storageTime is refreshed before
// encoding starts.
//
// The container must not be mutated until the stream is drained or closed.
// An encoding failure surfaces from Read after the already produced bytes.
func (c *Container) EncodeStream() io.ReadCloser {
	s := &encodeStream{
		ch:   make(chan []byte, streamDepth),
		done: make(chan struct{}),
	}
	if c.mutable {
		c.content()["storageTime"] = Timestamp()
	}
	go func() {
		defer close(s.ch)
		w := &chunkWriter{ch: s.ch, done: s.done}
		if err := c.encodeTo(w); err != nil {
			s.err = err
			return
		}
		if err := w.flush(); err != nil {
			s.err = err
			return
		}
		c.settle()
	}()
	return s
}

type encodeStream struct {
	ch     chan []byte
	done   chan struct{}
	buf    []byte
	err    error
	closed bool
}

func (s *encodeStream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		chunk, ok := <-s.ch
		if !ok {
			if s.err != nil {
				return 0, s.err
			}
			return 0, io.EOF
		}
		s.buf = chunk
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// Close releases the producer goroutine. Closing before EOF discards the
// remaining archive bytes.
func (s *encodeStream) Close() error {
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

// chunkWriter accumulates writes into fixed-size chunks and hands each full
// chunk to the consumer channel. Chunks are copied because archive writers
// reuse their buffers.
type chunkWriter struct {
	ch   chan<- []byte
	done <-chan struct{}
	buf  []byte
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		space := streamChunkSize - len(w.buf)
		if space > len(p) {
			space = len(p)
		}
		w.buf = append(w.buf, p[:space]...)
		p = p[space:]
		if len(w.buf) == streamChunkSize {
			if err := w.send(); err != nil {
				return total - len(p), err
			}
		}
	}
	return total, nil
}

func (w *chunkWriter) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	return w.send()
}

func (w *chunkWriter) send() error {
	chunk := w.buf
	w.buf = nil
	select {
	case w.ch <- chunk:
		return nil
	case <-w.done:
		return errStreamClosed
	}
}
