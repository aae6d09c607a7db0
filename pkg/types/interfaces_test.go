package types

import (
	"io"
	"testing"
)

func TestInterfaces(t *testing.T) {
	var (
		_ Channel           = (*mockChannel)(nil)
		_ Statistics        = NopStatistics{}
		_ Statistics        = (*mockStatistics)(nil)
		_ OperationObserver = (*mockStatistics)(nil)
	)
}

func TestNopStatistics(t *testing.T) {
	var s Statistics = NopStatistics{}
	s.IncrementBytesRead(10)
	s.IncrementReadOps(1)
}

func TestReadOptionsString(t *testing.T) {
	opts := ReadOptions{TraceLogEnabled: true}
	if got := opts.String(); got != "ReadOptions{TraceLogEnabled:true}" {
		t.Errorf("String() = %q", got)
	}
}

type mockChannel struct{}

func (m *mockChannel) Read(p []byte) (int, error)  { return 0, io.EOF }
func (m *mockChannel) Position() (int64, error)    { return 0, nil }
func (m *mockChannel) SetPosition(pos int64) error { return nil }
func (m *mockChannel) Size() (int64, error)        { return -1, nil }
func (m *mockChannel) IsOpen() bool                { return true }
func (m *mockChannel) Close() error                { return nil }

type mockStatistics struct{}

func (m *mockStatistics) IncrementBytesRead(n int64)                         {}
func (m *mockStatistics) IncrementReadOps(n int)                             {}
func (m *mockStatistics) ObserveOperation(op string, ns int64, success bool) {}
