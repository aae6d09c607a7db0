// Package filesystem ties the read path together. A Session builds one transport for its
// lifetime and opens streams on s3://, http:// and https:// resources through it.
package filesystem

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/objectfs/readpath/internal/config"
	"github.com/objectfs/readpath/internal/metrics"
	"github.com/objectfs/readpath/internal/storage"
	"github.com/objectfs/readpath/internal/storage/httprange"
	"github.com/objectfs/readpath/internal/storage/s3"
	"github.com/objectfs/readpath/internal/stream"
	"github.com/objectfs/readpath/internal/transport"
	"github.com/objectfs/readpath/pkg/errors"
	"github.com/objectfs/readpath/pkg/types"
	"github.com/objectfs/readpath/pkg/utils"
)

// Session owns the transport, the channel openers and the statistics sink shared by every
// stream it opens. It is safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	openers map[string]storage.Opener
	closed  bool

	transport *transport.Transport
	metrics   *metrics.Collector
	readOpts  types.ReadOptions
	base      *slog.Logger
	logger    *slog.Logger

	opened atomic.Uint64
}

// NewSession validates cfg, builds the transport once and registers the built-in openers.
// A nil cfg selects config.NewDefault.
func NewSession(ctx context.Context, cfg *config.Configuration, logger *slog.Logger) (*Session, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if logger == nil {
		logger = slog.Default()
	}
	base := logger
	logger = base.With("component", "session")

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArgument, err, "invalid configuration").
			WithComponent("filesystem")
	}

	opts, err := cfg.TransportOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = base

	tr, err := transport.New(opts)
	if err != nil {
		return nil, err
	}

	collector, err := metrics.NewCollector(cfg.MetricsConfig())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternalError, err, "failed to create metrics collector").
			WithComponent("filesystem")
	}

	client := tr.Client()
	s3client, err := s3.NewClient(ctx, cfg.S3Config(), client)
	if err != nil {
		tr.CloseIdleConnections()
		return nil, errors.Wrap(errors.ErrCodeTransportInit, err, "failed to create S3 client").
			WithComponent("filesystem")
	}

	s := &Session{
		openers:   make(map[string]storage.Opener),
		transport: tr,
		metrics:   collector,
		readOpts:  cfg.ReadOptions(),
		base:      base,
		logger:    logger,
	}

	web := httprange.NewOpener(client, base)
	s.openers[s3.Scheme] = s3.NewOpener(s3client, base)
	s.openers["http"] = web
	s.openers["https"] = web

	logger.Info("Session created",
		"transport", string(tr.Kind()),
		"trace_log", s.readOpts.TraceLogEnabled,
		"schemes", s.Schemes())

	return s, nil
}

// RegisterOpener serves scheme with opener, replacing any existing registration.
func (s *Session) RegisterOpener(scheme string, opener storage.Opener) error {
	scheme = strings.ToLower(scheme)
	if scheme == "" || opener == nil {
		return errors.NewError(errors.ErrCodeInvalidArgument, "scheme and opener are required").
			WithComponent("filesystem")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.openers[scheme] = opener
	return nil
}

// Schemes lists the registered URI schemes in sorted order.
func (s *Session) Schemes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schemes := make([]string, 0, len(s.openers))
	for scheme := range s.openers {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// Open opens a stream on uri with the session's read options. ctx bounds the stream's
// remote fetches for its whole lifetime.
func (s *Session) Open(ctx context.Context, uri string) (*stream.Stream, error) {
	return s.OpenWithOptions(ctx, uri, s.readOpts)
}

// OpenWithOptions opens a stream on uri with explicit read options.
func (s *Session) OpenWithOptions(ctx context.Context, uri string, opts types.ReadOptions) (*stream.Stream, error) {
	resource, err := utils.ParseResourceURI(uri)
	if err != nil {
		s.metrics.RecordError("open", err)
		return nil, err
	}

	s.mu.RLock()
	closed := s.closed
	opener, ok := s.openers[resource.Scheme]
	s.mu.RUnlock()

	if closed {
		err := errors.NewError(errors.ErrCodeResourceClosed, "session is closed").
			WithComponent("filesystem").
			WithOperation("open")
		s.metrics.RecordError("open", err)
		return nil, err
	}
	if !ok {
		err := errors.Newf(errors.ErrCodeInvalidArgument, "no opener registered for scheme %q", resource.Scheme).
			WithComponent("filesystem").
			WithContext("path", uri)
		s.metrics.RecordError("open", err)
		return nil, err
	}

	ch, err := opener.Open(ctx, resource, opts)
	if err != nil {
		s.metrics.RecordError("open", err)
		s.logger.Debug("Open failed", "path", uri, "error", err)
		return nil, err
	}

	s.opened.Add(1)
	return stream.New(resource.String(), ch, opts, s.metrics, s.base), nil
}

// Transport returns the session's transport.
func (s *Session) Transport() *transport.Transport {
	return s.transport
}

// Metrics returns the statistics sink shared by the session's streams.
func (s *Session) Metrics() *metrics.Collector {
	return s.metrics
}

// ResetMetrics clears the in-memory read totals, for example between batches of work.
// Exported Prometheus counters keep counting.
func (s *Session) ResetMetrics() {
	s.metrics.ResetMetrics()
	s.logger.Debug("Session metrics reset")
}

// Handler serves the session's metrics endpoints.
func (s *Session) Handler() http.Handler {
	return s.metrics.Handler()
}

// StreamsOpened returns how many streams the session has handed out.
func (s *Session) StreamsOpened() uint64 {
	return s.opened.Load()
}

// Close stops new opens and drops idle connections. Streams already handed out stay
// usable until their own Close. Calling Close twice is harmless.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.transport.CloseIdleConnections()

	stats := s.metrics.Snapshot()
	s.logger.Info("Session closed",
		"streams_opened", s.opened.Load(),
		"bytes_read", stats.BytesRead,
		"read_ops", stats.ReadOps)
	return nil
}
