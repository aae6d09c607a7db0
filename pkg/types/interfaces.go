package types

import (
	"io"
)

// Channel is the random-access byte channel a stream reads from and seeks within.
// Implementations are not required to be safe for concurrent use; the stream that
// owns a channel serializes every call.
type Channel interface {
	// Read reads up to len(p) bytes at the current position and advances it.
	// It returns io.EOF with a zero count at end of stream.
	io.Reader

	// Position returns the current absolute offset.
	Position() (int64, error)

	// SetPosition moves the current offset. Targets outside the channel's
	// addressable range fail and leave the position unchanged.
	SetPosition(pos int64) error

	// Size returns the channel length, or -1 when it is not known.
	Size() (int64, error)

	// IsOpen reports whether the channel has not been released yet.
	IsOpen() bool

	io.Closer
}

// Statistics receives write-only read statistics from open streams.
type Statistics interface {
	IncrementBytesRead(n int64)
	IncrementReadOps(n int)
}

// OperationObserver is optionally implemented by Statistics to receive per-operation timings.
type OperationObserver interface {
	ObserveOperation(operation string, durationNs int64, success bool)
}

// NopStatistics discards everything.
type NopStatistics struct{}

func (NopStatistics) IncrementBytesRead(int64) {}
func (NopStatistics) IncrementReadOps(int)     {}
