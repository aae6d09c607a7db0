package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestNewError(t *testing.T) {
	t.Parallel()

	t.Run("creates error with all defaults", func(t *testing.T) {
		err := NewError(ErrCodeInvalidProxyAddress, "proxy address is invalid")
		if err == nil {
			t.Fatal("NewError returned nil")
		}
		if err.Code != ErrCodeInvalidProxyAddress {
			t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidProxyAddress)
		}
		if err.Category != CategoryArgument {
			t.Errorf("Category = %v, want %v", err.Category, CategoryArgument)
		}
		if err.Details == nil {
			t.Error("Details map is nil")
		}
		if err.Context == nil {
			t.Error("Context map is nil")
		}
		if err.Timestamp.IsZero() {
			t.Error("Timestamp not set")
		}
	})

	t.Run("sets correct retryable defaults", func(t *testing.T) {
		if !NewError(ErrCodeIO, "read failed").Retryable {
			t.Error("IO_ERROR should be retryable by default")
		}
		if NewError(ErrCodeInvalidArgument, "bad").Retryable {
			t.Error("INVALID_ARGUMENT should not be retryable by default")
		}
		if NewError(ErrCodeInvariantViolation, "broken").Retryable {
			t.Error("INVARIANT_VIOLATION should never be retryable")
		}
	})
}

func TestGetCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code     ErrorCode
		expected ErrorCategory
	}{
		{ErrCodeInvalidArgument, CategoryArgument},
		{ErrCodeInvalidProxyAddress, CategoryArgument},
		{ErrCodeIndexOutOfBounds, CategoryArgument},
		{ErrCodeIO, CategoryIO},
		{ErrCodeObjectNotFound, CategoryIO},
		{ErrCodeTransportInit, CategoryIO},
		{ErrCodeTrustStore, CategoryIO},
		{ErrCodeResourceClosed, CategoryState},
		{ErrCodeInvariantViolation, CategoryInternal},
		{ErrCodeInternalError, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := GetCategory(tt.code); got != tt.expected {
				t.Errorf("GetCategory(%v) = %v, want %v", tt.code, got, tt.expected)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bare",
			err:  NewError(ErrCodeIO, "seek failed"),
			want: "IO_ERROR: seek failed",
		},
		{
			name: "with component",
			err:  NewError(ErrCodeIO, "seek failed").WithComponent("stream"),
			want: "[stream] IO_ERROR: seek failed",
		},
		{
			name: "with component and operation",
			err:  NewError(ErrCodeIO, "seek failed").WithComponent("stream").WithOperation("seek"),
			want: "[stream:seek] IO_ERROR: seek failed",
		},
		{
			name: "with cause",
			err:  Wrap(ErrCodeIO, io.ErrUnexpectedEOF, "read failed"),
			want: "IO_ERROR: read failed: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorsIsAndAs(t *testing.T) {
	t.Parallel()

	closed := NewError(ErrCodeResourceClosed, "stream closed").WithContext("path", "s3://b/k")
	wrapped := fmt.Errorf("outer: %w", closed)

	if !errors.Is(wrapped, ErrClosed) {
		t.Error("errors.Is should match by code through fmt wrapping")
	}
	if errors.Is(wrapped, ErrIndexOutOfBounds) {
		t.Error("errors.Is matched an unrelated code")
	}
	if !IsClosed(wrapped) {
		t.Error("IsClosed = false, want true")
	}

	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As failed to extract *Error")
	}
	if target.Context["path"] != "s3://b/k" {
		t.Errorf("context path = %q", target.Context["path"])
	}

	cause := io.ErrClosedPipe
	ioErr := Wrap(ErrCodeIO, cause, "read failed")
	if !errors.Is(ioErr, io.ErrClosedPipe) {
		t.Error("Unwrap should expose the cause")
	}
}

func TestCategoryHelpers(t *testing.T) {
	t.Parallel()

	bounds := NewError(ErrCodeIndexOutOfBounds, "offset=-1")
	if !IsBounds(bounds) || !IsArgument(bounds) {
		t.Error("bounds errors must be argument errors")
	}
	if IsIO(bounds) {
		t.Error("bounds error classified as IO")
	}

	trust := Wrap(ErrCodeTrustStore, errors.New("no roots"), "load trust store")
	if !IsIO(trust) {
		t.Error("trust store failures must be IO errors")
	}

	inv := NewError(ErrCodeInvariantViolation, "read 0 bytes")
	if !IsInvariantViolation(inv) {
		t.Error("IsInvariantViolation = false")
	}

	if CategoryOf(errors.New("plain")) != "" {
		t.Error("plain errors have no category")
	}
	if IsArgument(nil) || IsIO(nil) || IsClosed(nil) {
		t.Error("nil is not categorized")
	}
}

func TestStringAndJSON(t *testing.T) {
	t.Parallel()

	err := NewError(ErrCodeIO, "range read failed").
		WithComponent("storage").
		WithOperation("read").
		WithContext("path", "s3://bucket/key").
		WithDetail("position", int64(42)).
		WithCause(errors.New("connection reset"))

	s := err.String()
	for _, want := range []string{"Code=IO_ERROR", "Component=storage", "Operation=read", `"position":42`, "connection reset"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(err.JSON()), &decoded); err != nil {
		t.Fatalf("JSON() produced invalid JSON: %v", err)
	}
	if decoded["code"] != "IO_ERROR" {
		t.Errorf("code = %v", decoded["code"])
	}
	if _, ok := decoded["Cause"]; ok {
		t.Error("cause must not be serialized")
	}
}

func TestWithStack(t *testing.T) {
	err := NewError(ErrCodeInternalError, "boom").WithStack()
	if err.Stack == "" {
		t.Error("WithStack did not capture frames")
	}
	if strings.Contains(err.Stack, "pkg/errors/errors.go") {
		t.Error("stack should skip frames from errors.go")
	}
}
