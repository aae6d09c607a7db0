/*
Package types defines the contracts shared between the read path and the storage channels.

	┌─────────────────────────────────────────────┐
	│        internal/filesystem Session          │
	│   (builds the Transport, opens Streams)     │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│            internal/stream Stream           │
	│  (serialized, instrumented seekable reads)  │
	└─────────────────────────────────────────────┘
	          │                       │
	┌─────────┴────────┐    ┌─────────┴─────────┐
	│  types.Channel   │    │ types.Statistics  │
	│ (s3, httprange)  │    │ (internal/metrics)│
	└──────────────────┘    └───────────────────┘

A Channel is exclusively owned by the stream it was opened for. Statistics are
write-only hooks shared by every stream of a session and must be safe for
concurrent use.
*/
package types
