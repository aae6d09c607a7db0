// Package stream adapts a random-access channel into a seekable, instrumented input stream.
package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/objectfs/readpath/pkg/errors"
	"github.com/objectfs/readpath/pkg/positional"
	"github.com/objectfs/readpath/pkg/types"
)

// Trace operation names. Attributes of a trace record are keyed "{operation}_{field}".
const (
	OpReadByte       = "streamReadByte"
	OpRead           = "streamRead"
	OpReadPositional = "streamReadPositional"
	OpSeek           = "streamSeek"
	OpClose          = "streamClose"
)

// Stream is a seekable input stream bound to exactly one open channel.
//
// All methods are safe for concurrent use and are serialized by a per-stream lock. Closing a
// stream while another goroutine is blocked reading from it is not supported.
type Stream struct {
	mu sync.Mutex

	id       uuid.UUID
	resource string
	channel  types.Channel
	opts     types.ReadOptions
	stats    types.Statistics
	logger   *slog.Logger

	totalBytesRead int64
	closed         bool

	single [1]byte
}

var (
	_ io.ReadSeekCloser = (*Stream)(nil)
	_ io.ByteReader     = (*Stream)(nil)
	_ io.ReaderAt       = (*Stream)(nil)
)

// New binds resource to ch. The stream owns ch from now on and closes it on Close.
// A nil stats discards statistics; a nil logger uses slog.Default().
func New(resource string, ch types.Channel, opts types.ReadOptions, stats types.Statistics, logger *slog.Logger) *Stream {
	if stats == nil {
		stats = types.NopStatistics{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New()
	s := &Stream{
		id:       id,
		resource: resource,
		channel:  ch,
		opts:     opts,
		stats:    stats,
		logger:   logger.With("component", "stream", "stream_id", id.String()),
	}

	s.logger.Debug("Stream opened", "path", resource, "options", opts.String())
	return s
}

// ID returns the handle id used in log records.
func (s *Stream) ID() uuid.UUID {
	return s.id
}

// Resource returns the identifier the stream was opened for.
func (s *Stream) Resource() string {
	return s.resource
}

// BytesRead returns the cumulative number of bytes read so far.
func (s *Stream) BytesRead() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalBytesRead
}

// ReadByte returns the next byte, or io.EOF at end of stream.
func (s *Stream) ReadByte() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("readByte"); err != nil {
		return 0, err
	}

	start := time.Now()
	n, err := s.channel.Read(s.single[:])

	switch {
	case n == 1:
		s.recordRead(1)
		s.observe(OpReadByte, start, nil)
		s.trace(OpReadByte, start, slog.Int("bytesRead", 1))
		return s.single[0], nil
	case err == io.EOF:
		s.observe(OpReadByte, start, nil)
		s.trace(OpReadByte, start, slog.Int("bytesRead", 0))
		return 0, io.EOF
	case err != nil:
		s.observe(OpReadByte, start, err)
		return 0, s.ioError("readByte", err, "failed to read byte")
	}

	pos, _ := s.channel.Position()
	verr := errors.Newf(errors.ErrCodeInvariantViolation,
		"channel returned %d bytes for a single-byte read of %s at position %d", n, s.resource, pos).
		WithComponent("stream").
		WithOperation("readByte").
		WithContext("path", s.resource).
		WithDetail("position", pos).
		WithStack()
	s.observe(OpReadByte, start, verr)
	return 0, verr
}

// ReadBuffer reads up to length bytes into buf[offset:]. It returns (0, io.EOF) at end of
// stream and may return fewer bytes than requested.
func (s *Stream) ReadBuffer(buf []byte, offset, length int) (int, error) {
	if err := checkBounds(buf, offset, length); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("read"); err != nil {
		return 0, err
	}
	if length == 0 {
		return 0, nil
	}

	start := time.Now()
	n, err := s.channel.Read(buf[offset : offset+length])
	if n > 0 {
		s.recordRead(n)
	}

	if err != nil && err != io.EOF {
		s.observe(OpRead, start, err)
		return n, s.ioError("read", err, "failed to read")
	}

	s.observe(OpRead, start, nil)
	s.trace(OpRead, start,
		slog.Int("offset", offset),
		slog.Int("length", length),
		slog.Int("bytesRead", n))

	if n == 0 && err == io.EOF {
		return 0, io.EOF
	}
	return n, nil
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	return s.ReadBuffer(p, 0, len(p))
}

// ReadAtPosition reads up to length bytes into buf[offset:] starting at position, leaving
// the sequential position unchanged.
func (s *Stream) ReadAtPosition(position int64, buf []byte, offset, length int) (int, error) {
	if err := checkBounds(buf, offset, length); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("readPositional"); err != nil {
		return 0, err
	}
	if length == 0 {
		return 0, nil
	}

	start := time.Now()
	n, err := positional.ReadAt(s.channel, position, buf[offset:offset+length])
	return s.finishPositional(start, position, offset, length, n, err, false)
}

// ReadAt implements io.ReaderAt. It reads len(p) bytes unless the data ends first, in which
// case it returns the bytes read along with io.EOF.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("readAt"); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	start := time.Now()
	n, err := positional.ReadFull(s.channel, off, p)
	return s.finishPositional(start, off, 0, len(p), n, err, true)
}

func (s *Stream) finishPositional(start time.Time, position int64, offset, length, n int, err error, full bool) (int, error) {
	if n > 0 {
		s.recordRead(n)
	}

	eof := err == io.EOF || (full && err == io.ErrUnexpectedEOF)
	if err != nil && !eof {
		s.observe(OpReadPositional, start, err)
		return n, s.ioError("readPositional", err, fmt.Sprintf("failed to read at position %d", position))
	}

	s.observe(OpReadPositional, start, nil)
	s.trace(OpReadPositional, start,
		slog.Int64("position", position),
		slog.Int("offset", offset),
		slog.Int("length", length),
		slog.Int("bytesRead", n))

	if eof && (full || n == 0) {
		return n, io.EOF
	}
	return n, nil
}

// Position returns the current absolute offset.
func (s *Stream) Position() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("position"); err != nil {
		return 0, err
	}
	pos, err := s.channel.Position()
	if err != nil {
		return 0, s.ioError("position", err, "failed to get position")
	}
	s.logger.Debug("Position", "path", s.resource, "position", pos)
	return pos, nil
}

// Seek implements io.Seeker. The resolved target is always handed to the channel, and an
// invalid target leaves the position unchanged.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("seek"); err != nil {
		return 0, err
	}

	start := time.Now()
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		pos, err := s.channel.Position()
		if err != nil {
			return 0, s.ioError("seek", err, "failed to get position")
		}
		target = pos + offset
	case io.SeekEnd:
		size, err := s.channel.Size()
		if err != nil {
			return 0, s.ioError("seek", err, "failed to get size")
		}
		if size < 0 {
			return 0, errors.NewError(errors.ErrCodeIO, "cannot seek relative to end of a stream of unknown length").
				WithComponent("stream").
				WithOperation("seek").
				WithContext("path", s.resource)
		}
		target = size + offset
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidArgument, "invalid whence %d", whence).
			WithComponent("stream").
			WithOperation("seek")
	}

	s.logger.Debug("Seek", "path", s.resource, "position", target)

	if err := s.channel.SetPosition(target); err != nil {
		s.observe(OpSeek, start, err)
		return 0, s.ioError("seek", err, fmt.Sprintf("invalid seek offset %d", target)).
			WithDetail("position", target)
	}

	s.observe(OpSeek, start, nil)
	s.trace(OpSeek, start, slog.Int64("position", target))
	return target, nil
}

// SeekToNewSource never finds another copy of the data.
func (s *Stream) SeekToNewSource(target int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("seekToNewSource"); err != nil {
		return false, err
	}
	return false, nil
}

// MarkSupported reports that mark/reset is not available.
func (s *Stream) MarkSupported() bool {
	return false
}

// Available returns a non-blocking estimate of the bytes that can be read: the remaining
// length when the channel knows it, 0 otherwise.
func (s *Stream) Available() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.channel.IsOpen() {
		return 0, s.closedError("available")
	}

	size, err := s.channel.Size()
	if err != nil || size < 0 {
		return 0, nil
	}
	pos, err := s.channel.Position()
	if err != nil {
		return 0, nil
	}

	remaining := size - pos
	switch {
	case remaining <= 0:
		return 0, nil
	case remaining > math.MaxInt32:
		return math.MaxInt32, nil
	default:
		return int(remaining), nil
	}
}

// Close releases the channel. Calling Close more than once is a no-op.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	start := time.Now()
	s.logger.Debug("Closing stream", "path", s.resource, "total_bytes_read", s.totalBytesRead)

	err := s.channel.Close()
	s.observe(OpClose, start, err)
	s.trace(OpClose, start, slog.Int64("bytesRead", s.totalBytesRead))
	if err != nil {
		return s.ioError("close", err, "failed to close channel")
	}
	return nil
}

func checkBounds(buf []byte, offset, length int) error {
	if offset < 0 || length < 0 || length > len(buf)-offset {
		return errors.Newf(errors.ErrCodeIndexOutOfBounds,
			"offset=%d, length=%d, buffer length=%d", offset, length, len(buf)).
			WithComponent("stream")
	}
	return nil
}

func (s *Stream) checkOpen(op string) error {
	if s.closed {
		return s.closedError(op)
	}
	return nil
}

func (s *Stream) closedError(op string) *errors.Error {
	return errors.Newf(errors.ErrCodeResourceClosed, "stream for %s is closed", s.resource).
		WithComponent("stream").
		WithOperation(op).
		WithContext("path", s.resource)
}

// ioError wraps err as an I/O error naming the resource and channel position. Structured
// errors from the channel keep their code.
func (s *Stream) ioError(op string, err error, msg string) *errors.Error {
	code := errors.ErrCodeIO
	var e *errors.Error
	if errors.As(err, &e) && errors.GetCategory(e.Code) == errors.CategoryIO {
		code = e.Code
	}

	wrapped := errors.Wrap(code, err, fmt.Sprintf("%s (path %s)", msg, s.resource)).
		WithComponent("stream").
		WithOperation(op).
		WithContext("path", s.resource)
	if pos, perr := s.channel.Position(); perr == nil {
		wrapped.WithDetail("channel_position", pos)
	}
	return wrapped
}

// recordRead updates the stream's own count first; a failing statistics sink is logged and
// otherwise ignored.
func (s *Stream) recordRead(n int) {
	s.totalBytesRead += int64(n)

	defer s.recoverHook("statistics")
	s.stats.IncrementBytesRead(int64(n))
	s.stats.IncrementReadOps(1)
}

func (s *Stream) observe(op string, start time.Time, err error) {
	o, ok := s.stats.(types.OperationObserver)
	if !ok {
		return
	}
	defer s.recoverHook("observer")
	o.ObserveOperation(op, time.Since(start).Nanoseconds(), err == nil)
}

func (s *Stream) recoverHook(hook string) {
	if r := recover(); r != nil {
		func() {
			defer func() { _ = recover() }()
			s.logger.Debug("Ignoring failure in stream hook", "hook", hook, "panic", fmt.Sprint(r))
		}()
	}
}

// trace emits one record per operation when tracing is enabled. Failures while emitting are
// swallowed and never reach the caller.
func (s *Stream) trace(op string, start time.Time, fields ...slog.Attr) {
	if !s.opts.TraceLogEnabled {
		return
	}
	defer func() { _ = recover() }()

	attrs := make([]slog.Attr, 0, len(fields)+2)
	attrs = append(attrs,
		slog.Int64(op+"_durationNs", time.Since(start).Nanoseconds()),
		slog.String(op+"_path", s.resource))
	for _, f := range fields {
		attrs = append(attrs, slog.Attr{Key: op + "_" + f.Key, Value: f.Value})
	}
	s.logger.LogAttrs(context.Background(), slog.LevelInfo, op, attrs...)
}
