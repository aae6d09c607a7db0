// Package positional implements positional reads on top of a seekable sequential reader.
//
// A positional read saves the current position, moves to the requested one, reads, and moves
// back, so the sequential position observed by the caller is unchanged afterward. Callers are
// responsible for serializing access; nothing here locks.
package positional

import (
	"io"
)

// Seekable is the minimal contract a positional read needs.
type Seekable interface {
	io.Reader
	Position() (int64, error)
	SetPosition(pos int64) error
}

// sizer is implemented by readers that may know their total length. A negative size means
// unknown.
type sizer interface {
	Size() (int64, error)
}

// pastEnd reports whether pos is at or beyond a known end of r. Positions past the end are
// end of data, not an error, so they never reach SetPosition.
func pastEnd(r Seekable, pos int64) bool {
	sz, ok := r.(sizer)
	if !ok || pos < 0 {
		return false
	}
	size, err := sz.Size()
	return err == nil && size >= 0 && pos >= size
}

// ReadAt reads up to len(p) bytes starting at pos and restores the previous position.
// It returns (0, io.EOF) when pos is at or past the end of the data.
func ReadAt(r Seekable, pos int64, p []byte) (n int, err error) {
	if len(p) > 0 && pastEnd(r, pos) {
		return 0, io.EOF
	}

	saved, err := r.Position()
	if err != nil {
		return 0, err
	}

	if err := r.SetPosition(pos); err != nil {
		return 0, err
	}

	defer func() {
		if restoreErr := r.SetPosition(saved); restoreErr != nil && err == nil {
			err = restoreErr
		}
	}()

	if len(p) == 0 {
		return 0, nil
	}
	return r.Read(p)
}

// ReadFull fills p starting at pos, issuing as many reads as needed, and restores the
// previous position. It returns io.ErrUnexpectedEOF if the data ends before p is full, and
// (0, io.EOF) when pos is at or past the end.
func ReadFull(r Seekable, pos int64, p []byte) (n int, err error) {
	if len(p) > 0 && pastEnd(r, pos) {
		return 0, io.EOF
	}

	saved, err := r.Position()
	if err != nil {
		return 0, err
	}

	if err := r.SetPosition(pos); err != nil {
		return 0, err
	}

	defer func() {
		if restoreErr := r.SetPosition(saved); restoreErr != nil && err == nil {
			err = restoreErr
		}
	}()

	for n < len(p) {
		m, readErr := r.Read(p[n:])
		n += m
		if readErr == io.EOF {
			if n == len(p) {
				return n, nil
			}
			if n == 0 {
				return 0, io.EOF
			}
			return n, io.ErrUnexpectedEOF
		}
		if readErr != nil {
			return n, readErr
		}
		if m == 0 {
			return n, io.ErrNoProgress
		}
	}
	return n, nil
}
