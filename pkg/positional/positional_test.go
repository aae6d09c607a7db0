package positional

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memReader is a seekable in-memory reader that caps every read at chunk bytes.
type memReader struct {
	data   []byte
	pos    int64
	chunk  int
	setErr error
	calls  []int64
}

func (m *memReader) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	if m.chunk > 0 && len(p) > m.chunk {
		p = p[:m.chunk]
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memReader) Position() (int64, error) { return m.pos, nil }

func (m *memReader) SetPosition(pos int64) error {
	m.calls = append(m.calls, pos)
	if m.setErr != nil {
		return m.setErr
	}
	if pos < 0 || pos > int64(len(m.data)) {
		return errors.New("position out of range")
	}
	m.pos = pos
	return nil
}

func TestReadAtRestoresPosition(t *testing.T) {
	r := &memReader{data: []byte("0123456789")}
	r.pos = 2

	buf := make([]byte, 3)
	n, err := ReadAt(r, 6, buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "678", string(buf))
	assert.Equal(t, int64(2), r.pos)
	assert.Equal(t, []int64{6, 2}, r.calls)
}

func TestReadAtShortAndEOF(t *testing.T) {
	r := &memReader{data: []byte("0123456789"), chunk: 2}

	buf := make([]byte, 8)
	n, err := ReadAt(r, 1, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "a single read may be short")

	n, err = ReadAt(r, 10, buf)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, int64(0), r.pos)
}

func TestReadAtSeekFailure(t *testing.T) {
	r := &memReader{data: []byte("abc")}

	_, err := ReadAt(r, 42, make([]byte, 1))
	require.Error(t, err)
	assert.Equal(t, int64(0), r.pos)
}

func TestReadAtRestoreFailure(t *testing.T) {
	boom := errors.New("boom")
	r := &memReader{data: []byte("abc"), setErr: boom}

	_, err := ReadAt(r, 1, make([]byte, 1))
	assert.ErrorIs(t, err, boom)
}

func TestReadFull(t *testing.T) {
	r := &memReader{data: []byte("0123456789"), chunk: 3}
	r.pos = 9

	buf := make([]byte, 7)
	n, err := ReadFull(r, 2, buf)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "2345678", string(buf))
	assert.Equal(t, int64(9), r.pos)
}

func TestReadFullUnexpectedEOF(t *testing.T) {
	r := &memReader{data: []byte("0123456789"), chunk: 4}

	buf := make([]byte, 6)
	n, err := ReadFull(r, 7, buf)
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, int64(0), r.pos)

	n, err = ReadFull(r, 10, buf)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

// sizedReader reports its length like a channel with a known size.
type sizedReader struct {
	memReader
}

func (s *sizedReader) Size() (int64, error) { return int64(len(s.data)), nil }

func TestPastEndIsEOFWhenSizeKnown(t *testing.T) {
	r := &sizedReader{memReader{data: []byte("0123456789")}}
	r.pos = 4

	n, err := ReadAt(r, 20, make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	n, err = ReadFull(r, 20, make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	assert.Empty(t, r.calls, "SetPosition must not be called past the end")
	assert.Equal(t, int64(4), r.pos)

	_, err = ReadAt(r, -1, make([]byte, 4))
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF, "negative positions stay errors")
}
