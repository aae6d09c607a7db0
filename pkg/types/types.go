package types

import (
	"fmt"
	"time"
)

// ReadOptions are resolved once when a resource is opened and never change afterward.
type ReadOptions struct {
	// TraceLogEnabled emits one structured trace record per read, seek and close.
	TraceLogEnabled bool `yaml:"trace_log_enabled" json:"trace_log_enabled"`
}

// String implements fmt.Stringer for log output.
func (o ReadOptions) String() string {
	return fmt.Sprintf("ReadOptions{TraceLogEnabled:%t}", o.TraceLogEnabled)
}

// ObjectInfo represents metadata about a remote object
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag"`
	ContentType  string    `json:"content_type"`
}
