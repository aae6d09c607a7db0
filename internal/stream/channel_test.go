package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// fakeChannel is an in-memory channel that counts every call made to it.
type fakeChannel struct {
	data      []byte
	pos       int64
	open      bool
	sizeKnown bool

	readFunc func(p []byte) (int, error)

	reads        int
	setPositions int
	closes       int

	inUse   atomic.Int32
	overlap atomic.Bool
}

func newFakeChannel(data []byte) *fakeChannel {
	return &fakeChannel{data: data, open: true, sizeKnown: true}
}

func (c *fakeChannel) enter() func() {
	if c.inUse.Add(1) > 1 {
		c.overlap.Store(true)
	}
	return func() { c.inUse.Add(-1) }
}

func (c *fakeChannel) Read(p []byte) (int, error) {
	defer c.enter()()
	c.reads++
	if c.readFunc != nil {
		return c.readFunc(p)
	}
	if c.pos >= int64(len(c.data)) {
		return 0, io.EOF
	}
	n := copy(p, c.data[c.pos:])
	c.pos += int64(n)
	return n, nil
}

func (c *fakeChannel) Position() (int64, error) {
	defer c.enter()()
	return c.pos, nil
}

func (c *fakeChannel) SetPosition(pos int64) error {
	defer c.enter()()
	c.setPositions++
	if pos < 0 || pos > int64(len(c.data)) {
		return fmt.Errorf("position %d outside [0, %d]", pos, len(c.data))
	}
	c.pos = pos
	return nil
}

func (c *fakeChannel) Size() (int64, error) {
	if !c.sizeKnown {
		return -1, nil
	}
	return int64(len(c.data)), nil
}

func (c *fakeChannel) IsOpen() bool { return c.open }

func (c *fakeChannel) Close() error {
	c.closes++
	c.open = false
	return nil
}

// recordingStats is a concurrency-safe Statistics double.
type recordingStats struct {
	mu        sync.Mutex
	bytesRead int64
	readOps   int
	observed  map[string]int
}

func (s *recordingStats) IncrementBytesRead(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytesRead += n
}

func (s *recordingStats) IncrementReadOps(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readOps += n
}

func (s *recordingStats) ObserveOperation(op string, _ int64, _ bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.observed == nil {
		s.observed = make(map[string]int)
	}
	s.observed[op]++
}

func (s *recordingStats) snapshot() (int64, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesRead, s.readOps
}

// panicHandler fails on every record it is asked to handle.
// panickingStats fails on every hook.
type panickingStats struct{}

func (panickingStats) IncrementBytesRead(int64)             { panic("stats sink exploded") }
func (panickingStats) IncrementReadOps(int)                 { panic("stats sink exploded") }
func (panickingStats) ObserveOperation(string, int64, bool) { panic("observer exploded") }

type panicHandler struct{}

func (panicHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= slog.LevelInfo }
func (panicHandler) Handle(context.Context, slog.Record) error    { panic("handler exploded") }
func (h panicHandler) WithAttrs([]slog.Attr) slog.Handler         { return h }
func (h panicHandler) WithGroup(string) slog.Handler              { return h }
