// Package httprange opens random-access channels on plain http(s) URLs using Range requests.
package httprange

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/objectfs/readpath/internal/storage"
	"github.com/objectfs/readpath/pkg/errors"
	"github.com/objectfs/readpath/pkg/types"
	"github.com/objectfs/readpath/pkg/utils"
)

// Opener opens channels on http:// and https:// resources.
type Opener struct {
	client  *http.Client
	metrics *storage.MetricsCollector
	logger  *slog.Logger
}

var _ storage.Opener = (*Opener)(nil)

// NewOpener creates an opener that sends every request through client.
func NewOpener(client *http.Client, logger *slog.Logger) *Opener {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{
		client:  client,
		metrics: storage.NewMetricsCollector(),
		logger:  logger.With("component", "http-opener"),
	}
}

// Open learns the length with a HEAD request and returns a channel positioned at 0.
func (o *Opener) Open(ctx context.Context, uri *utils.ResourceURI, opts types.ReadOptions) (types.Channel, error) {
	if uri.Scheme != "http" && uri.Scheme != "https" {
		return nil, errors.Newf(errors.ErrCodeInvalidArgument, "http opener cannot open %q", uri.String()).
			WithComponent("httprange")
	}

	target := uri.URL().String()
	size, err := o.head(ctx, target)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("Opening URL", "url", target, "size", size, "options", opts.String())

	fetch := storage.FetchFunc(func(ctx context.Context, offset int64) (io.ReadCloser, error) {
		return o.get(ctx, target, offset)
	})
	return storage.NewRangeChannel(ctx, uri.String(), size, fetch, o.logger), nil
}

func (o *Opener) head(ctx context.Context, target string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidArgument, err, "failed to build request").
			WithComponent("httprange")
	}

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		o.metrics.RecordRequest(time.Since(start), err)
		return 0, errors.Wrap(errors.ErrCodeIO, err, fmt.Sprintf("HEAD %s failed", target)).
			WithComponent("httprange").WithOperation("head")
	}
	_ = resp.Body.Close()

	if err := statusError(resp, target, "head"); err != nil {
		o.metrics.RecordRequest(time.Since(start), err)
		return 0, err
	}
	o.metrics.RecordRequest(time.Since(start), nil)

	// ContentLength is -1 when the server did not say.
	return resp.ContentLength, nil
}

func (o *Opener) get(ctx context.Context, target string, offset int64) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArgument, err, "failed to build request").
			WithComponent("httprange")
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		o.metrics.RecordRequest(time.Since(start), err)
		return nil, errors.Wrap(errors.ErrCodeIO, err, fmt.Sprintf("GET %s failed", target)).
			WithComponent("httprange").WithOperation("get").WithDetail("offset", offset)
	}

	switch {
	case resp.StatusCode == http.StatusPartialContent:
	case resp.StatusCode == http.StatusOK && offset == 0:
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		// Offset at or past the end of an object of unknown length.
		_ = resp.Body.Close()
		o.metrics.RecordRequest(time.Since(start), nil)
		return io.NopCloser(http.NoBody), nil
	case resp.StatusCode == http.StatusOK:
		_ = resp.Body.Close()
		err := errors.Newf(errors.ErrCodeIO, "server ignored range request for %s at offset %d", target, offset).
			WithComponent("httprange").WithOperation("get")
		o.metrics.RecordRequest(time.Since(start), err)
		return nil, err
	default:
		_ = resp.Body.Close()
		err := statusError(resp, target, "get")
		o.metrics.RecordRequest(time.Since(start), err)
		return nil, err
	}

	o.metrics.RecordRequest(time.Since(start), nil)
	return &storage.CountingBody{Body: resp.Body, Metrics: o.metrics}, nil
}

// Metrics returns request statistics for this opener.
func (o *Opener) Metrics() storage.RequestMetrics {
	return o.metrics.GetMetrics()
}

func statusError(resp *http.Response, target, op string) error {
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return errors.Newf(errors.ErrCodeObjectNotFound, "object not found: %s", target).
			WithComponent("httprange").WithOperation(op).WithContext("path", target)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return errors.Newf(errors.ErrCodeIO, "unexpected status %s for %s", resp.Status, target).
			WithComponent("httprange").WithOperation(op).WithContext("path", target).
			WithDetail("status", resp.StatusCode)
	}
}
