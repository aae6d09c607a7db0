package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/objectfs/readpath/internal/storage"
	"github.com/objectfs/readpath/pkg/errors"
	"github.com/objectfs/readpath/pkg/types"
	"github.com/objectfs/readpath/pkg/utils"
)

// Scheme is the URI scheme served by this package.
const Scheme = "s3"

// ObjectAPI is the subset of *s3.Client the opener uses.
type ObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener opens channels on s3:// resources.
type Opener struct {
	client  ObjectAPI
	metrics *storage.MetricsCollector
	logger  *slog.Logger
}

var _ storage.Opener = (*Opener)(nil)

// NewOpener creates an opener over client.
func NewOpener(client ObjectAPI, logger *slog.Logger) *Opener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{
		client:  client,
		metrics: storage.NewMetricsCollector(),
		logger:  logger.With("component", "s3-opener"),
	}
}

// Open heads the object and returns a channel positioned at 0. ctx bounds the channel's
// later fetches as well.
func (o *Opener) Open(ctx context.Context, uri *utils.ResourceURI, opts types.ReadOptions) (types.Channel, error) {
	if uri.Scheme != Scheme {
		return nil, errors.Newf(errors.ErrCodeInvalidArgument, "s3 opener cannot open %q", uri.String()).
			WithComponent("s3")
	}

	info, err := o.HeadObject(ctx, uri.Bucket, uri.Key)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("Opening object", "bucket", uri.Bucket, "key", uri.Key, "size", info.Size, "options", opts.String())

	bucket, key := uri.Bucket, uri.Key
	fetch := storage.FetchFunc(func(ctx context.Context, offset int64) (io.ReadCloser, error) {
		return o.GetObject(ctx, bucket, key, offset)
	})
	return storage.NewRangeChannel(ctx, uri.String(), info.Size, fetch, o.logger), nil
}

// HeadObject retrieves metadata about an object
func (o *Opener) HeadObject(ctx context.Context, bucket, key string) (*types.ObjectInfo, error) {
	start := time.Now()
	result, err := o.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	o.metrics.RecordRequest(time.Since(start), err)
	if err != nil {
		return nil, translateError(err, "HeadObject", bucket, key)
	}

	size := int64(-1)
	if result.ContentLength != nil {
		size = *result.ContentLength
	}

	return &types.ObjectInfo{
		Key:          key,
		Size:         size,
		LastModified: aws.ToTime(result.LastModified),
		ETag:         aws.ToString(result.ETag),
		ContentType:  aws.ToString(result.ContentType),
	}, nil
}

// GetObject opens the object body from offset to the end.
func (o *Opener) GetObject(ctx context.Context, bucket, key string, offset int64) (io.ReadCloser, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if offset > 0 {
		input.Range = aws.String(fmt.Sprintf("bytes=%d-", offset))
	}

	start := time.Now()
	result, err := o.client.GetObject(ctx, input)
	o.metrics.RecordRequest(time.Since(start), err)
	if err != nil {
		return nil, translateError(err, "GetObject", bucket, key).WithDetail("offset", offset)
	}

	return &storage.CountingBody{Body: result.Body, Metrics: o.metrics}, nil
}

// Metrics returns request statistics for this opener.
func (o *Opener) Metrics() storage.RequestMetrics {
	return o.metrics.GetMetrics()
}

func translateError(err error, operation, bucket, key string) *errors.Error {
	path := fmt.Sprintf("s3://%s/%s", bucket, key)

	var (
		noSuchKey    *s3types.NoSuchKey
		notFound     *s3types.NotFound
		noSuchBucket *s3types.NoSuchBucket
	)
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return errors.Wrap(errors.ErrCodeObjectNotFound, err, fmt.Sprintf("object not found: %s", path)).
			WithComponent("s3").WithOperation(operation).WithContext("path", path)
	case errors.As(err, &noSuchBucket):
		return errors.Wrap(errors.ErrCodeObjectNotFound, err, fmt.Sprintf("bucket not found: %s", bucket)).
			WithComponent("s3").WithOperation(operation).WithContext("path", path)
	default:
		return errors.Wrap(errors.ErrCodeIO, err, fmt.Sprintf("%s failed for %s", operation, path)).
			WithComponent("s3").WithOperation(operation).WithContext("path", path)
	}
}
