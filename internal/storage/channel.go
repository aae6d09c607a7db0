package storage

import (
	"context"
	"io"
	"log/slog"

	"github.com/objectfs/readpath/pkg/errors"
	"github.com/objectfs/readpath/pkg/types"
)

// RangeChannel is a types.Channel over a ranged fetch. Moving the position only records the
// new offset; the next read reopens the body there. It is not safe for concurrent use.
type RangeChannel struct {
	ctx      context.Context
	resource string
	fetcher  Fetcher
	size     int64
	logger   *slog.Logger

	pos     int64
	body    io.ReadCloser
	bodyPos int64
	open    bool
	fetches int
}

var _ types.Channel = (*RangeChannel)(nil)

// NewRangeChannel creates a channel for resource. size is the object length, or -1 when
// unknown. ctx bounds every fetch the channel issues.
func NewRangeChannel(ctx context.Context, resource string, size int64, f Fetcher, logger *slog.Logger) *RangeChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &RangeChannel{
		ctx:      ctx,
		resource: resource,
		fetcher:  f,
		size:     size,
		logger:   logger.With("component", "range-channel", "path", resource),
		open:     true,
	}
}

// Read implements io.Reader.
func (c *RangeChannel) Read(p []byte) (int, error) {
	if !c.open {
		return 0, c.closedError("read")
	}
	if len(p) == 0 {
		return 0, nil
	}
	if c.size >= 0 && c.pos >= c.size {
		return 0, io.EOF
	}

	if c.body == nil || c.bodyPos != c.pos {
		if err := c.reopen(); err != nil {
			return 0, err
		}
	}

	n, err := c.body.Read(p)
	c.pos += int64(n)
	c.bodyPos += int64(n)

	switch {
	case err == io.EOF:
		c.closeBody()
		if n > 0 {
			return n, nil
		}
		if c.size >= 0 && c.pos < c.size {
			return 0, errors.Newf(errors.ErrCodeIO,
				"premature end of body at position %d of %d", c.pos, c.size).
				WithComponent("storage").
				WithOperation("read").
				WithContext("path", c.resource)
		}
		return 0, io.EOF
	case err != nil:
		c.closeBody()
		return n, errors.Wrap(errors.ErrCodeIO, err, "failed to read object body").
			WithComponent("storage").
			WithOperation("read").
			WithContext("path", c.resource).
			WithDetail("position", c.pos)
	}
	return n, nil
}

func (c *RangeChannel) reopen() error {
	c.closeBody()

	body, err := c.fetcher.Fetch(c.ctx, c.pos)
	if err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			return err
		}
		return errors.Wrap(errors.ErrCodeIO, err, "failed to open object body").
			WithComponent("storage").
			WithOperation("fetch").
			WithContext("path", c.resource).
			WithDetail("position", c.pos)
	}

	c.fetches++
	c.body = body
	c.bodyPos = c.pos
	c.logger.Debug("Opened object body", "position", c.pos, "fetches", c.fetches)
	return nil
}

func (c *RangeChannel) closeBody() {
	if c.body != nil {
		_ = c.body.Close()
		c.body = nil
	}
}

// Position returns the current offset.
func (c *RangeChannel) Position() (int64, error) {
	if !c.open {
		return 0, c.closedError("position")
	}
	return c.pos, nil
}

// SetPosition moves the offset. Negative offsets, and offsets past the end when the size is
// known, are rejected and leave the position unchanged.
func (c *RangeChannel) SetPosition(pos int64) error {
	if !c.open {
		return c.closedError("setPosition")
	}
	if pos < 0 || (c.size >= 0 && pos > c.size) {
		return errors.Newf(errors.ErrCodeInvalidArgument,
			"position %d outside object of size %d", pos, c.size).
			WithComponent("storage").
			WithOperation("setPosition").
			WithContext("path", c.resource)
	}
	c.pos = pos
	return nil
}

// Size returns the object length, or -1 when unknown.
func (c *RangeChannel) Size() (int64, error) {
	if !c.open {
		return 0, c.closedError("size")
	}
	return c.size, nil
}

// IsOpen reports whether Close has not been called.
func (c *RangeChannel) IsOpen() bool {
	return c.open
}

// Close releases the current body. It is idempotent.
func (c *RangeChannel) Close() error {
	if !c.open {
		return nil
	}
	c.open = false
	c.closeBody()
	c.logger.Debug("Channel closed", "fetches", c.fetches)
	return nil
}

func (c *RangeChannel) closedError(op string) error {
	return errors.Newf(errors.ErrCodeResourceClosed, "channel for %s is closed", c.resource).
		WithComponent("storage").
		WithOperation(op)
}
