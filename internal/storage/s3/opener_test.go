package s3

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/readpath/pkg/errors"
	"github.com/objectfs/readpath/pkg/types"
	"github.com/objectfs/readpath/pkg/utils"
)

type fakeAPI struct {
	objects map[string][]byte
	ranges  []string
	heads   int
	getErr  error
}

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.heads++
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NotFound{Message: aws.String("not found")}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data))), ETag: aws.String(`"etag"`)}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String("no such key")}
	}
	rng := aws.ToString(in.Range)
	f.ranges = append(f.ranges, rng)
	offset := 0
	if rng != "" {
		v, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(rng, "bytes="), "-"))
		if err != nil {
			return nil, err
		}
		offset = v
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data[offset:]))}, nil
}

func mustURI(t *testing.T, raw string) *utils.ResourceURI {
	t.Helper()
	uri, err := utils.ParseResourceURI(raw)
	require.NoError(t, err)
	return uri
}

func TestOpenerReadsRanges(t *testing.T) {
	api := &fakeAPI{objects: map[string][]byte{"bucket/dir/obj": []byte("0123456789")}}
	o := NewOpener(api, nil)

	ch, err := o.Open(context.Background(), mustURI(t, "s3://bucket/dir/obj"), types.ReadOptions{})
	require.NoError(t, err)
	defer ch.Close()

	size, err := ch.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	buf := make([]byte, 3)
	_, err = io.ReadFull(ch, buf)
	require.NoError(t, err)
	assert.Equal(t, "012", string(buf))

	require.NoError(t, ch.SetPosition(7))
	_, err = io.ReadFull(ch, buf)
	require.NoError(t, err)
	assert.Equal(t, "789", string(buf))

	assert.Equal(t, []string{"", "bytes=7-"}, api.ranges)
	assert.Equal(t, 1, api.heads)

	m := o.Metrics()
	assert.Equal(t, int64(3), m.Requests)
	assert.Equal(t, int64(6), m.BytesDownloaded)
}

func TestOpenerNotFound(t *testing.T) {
	o := NewOpener(&fakeAPI{objects: map[string][]byte{}}, nil)

	_, err := o.Open(context.Background(), mustURI(t, "s3://bucket/missing"), types.ReadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrObjectNotFound)
	assert.True(t, errors.IsIO(err))
	assert.Contains(t, err.Error(), "s3://bucket/missing")
	assert.Equal(t, int64(1), o.Metrics().Errors)
}

func TestOpenerGetFailure(t *testing.T) {
	cause := stderrors.New("connection reset")
	api := &fakeAPI{objects: map[string][]byte{"bucket/k": []byte("abc")}, getErr: cause}
	o := NewOpener(api, nil)

	ch, err := o.Open(context.Background(), mustURI(t, "s3://bucket/k"), types.ReadOptions{})
	require.NoError(t, err)

	_, err = ch.Read(make([]byte, 1))
	require.Error(t, err)
	assert.True(t, errors.IsIO(err))
	assert.ErrorIs(t, err, cause)
}

func TestOpenerRejectsOtherSchemes(t *testing.T) {
	o := NewOpener(&fakeAPI{}, nil)
	_, err := o.Open(context.Background(), mustURI(t, "https://example.com/k"), types.ReadOptions{})
	assert.True(t, errors.IsArgument(err))
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{"no such key", &s3types.NoSuchKey{}, errors.ErrCodeObjectNotFound},
		{"not found", &s3types.NotFound{}, errors.ErrCodeObjectNotFound},
		{"no such bucket", &s3types.NoSuchBucket{}, errors.ErrCodeObjectNotFound},
		{"wrapped no such key", fmt.Errorf("op: %w", &s3types.NoSuchKey{}), errors.ErrCodeObjectNotFound},
		{"other", stderrors.New("throttled"), errors.ErrCodeIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err, "GetObject", "bucket", "key")
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, "s3://bucket/key", got.Context["path"])
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

// fakeS3 serves path-style HEAD and ranged GET requests for a single object.
func fakeS3(t *testing.T, bucket, key string, data []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+bucket+"/"+key {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			}
			return
		}

		switch r.Method {
		case http.MethodHead:
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			offset := 0
			if rng := r.Header.Get("Range"); rng != "" {
				offset, _ = strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(rng, "bytes="), "-"))
				w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, len(data)-1, len(data)))
				w.Header().Set("Content-Length", strconv.Itoa(len(data)-offset))
				w.WriteHeader(http.StatusPartialContent)
			} else {
				w.Header().Set("Content-Length", strconv.Itoa(len(data)))
				w.WriteHeader(http.StatusOK)
			}
			_, _ = w.Write(data[offset:])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
}

func TestClientAgainstEndpoint(t *testing.T) {
	data := []byte(strings.Repeat("objectfs", 64))
	srv := fakeS3(t, "bucket", "data/blob", data)
	defer srv.Close()

	client, err := NewClient(context.Background(), &Config{
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		ForcePathStyle:  true,
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		MaxRetries:      1,
	}, srv.Client())
	require.NoError(t, err)

	o := NewOpener(client, nil)
	ch, err := o.Open(context.Background(), mustURI(t, "s3://bucket/data/blob"), types.ReadOptions{})
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, ch.SetPosition(100))
	got, err := io.ReadAll(ch)
	require.NoError(t, err)
	assert.Equal(t, data[100:], got)

	_, err = o.Open(context.Background(), mustURI(t, "s3://bucket/other"), types.ReadOptions{})
	assert.ErrorIs(t, err, errors.ErrObjectNotFound)
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.False(t, cfg.ForcePathStyle)
}
