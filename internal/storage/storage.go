// Package storage provides the random-access channels streams read from. Concrete backends
// live in sub-packages and only need to supply a Fetcher that opens a body at an offset.
package storage

import (
	"context"
	"io"

	"github.com/objectfs/readpath/pkg/types"
	"github.com/objectfs/readpath/pkg/utils"
)

// Opener opens channels for resources of one URI scheme.
type Opener interface {
	Open(ctx context.Context, uri *utils.ResourceURI, opts types.ReadOptions) (types.Channel, error)
}

// Fetcher opens the object body starting at offset and running to the end of the object.
type Fetcher interface {
	Fetch(ctx context.Context, offset int64) (io.ReadCloser, error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc func(ctx context.Context, offset int64) (io.ReadCloser, error)

// Fetch implements Fetcher.
func (f FetchFunc) Fetch(ctx context.Context, offset int64) (io.ReadCloser, error) {
	return f(ctx, offset)
}
