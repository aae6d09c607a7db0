/*
Package s3 opens random-access channels on S3 objects.

The opener issues one HeadObject when a channel is opened to learn the object length, then
one ranged GetObject ("bytes=N-") each time the channel has to start reading at a new offset.
Sequential reads reuse the open body.

	┌──────────────────────────────┐
	│       stream.Stream          │
	└──────────────────────────────┘
	               │
	┌──────────────────────────────┐
	│   storage.RangeChannel       │
	│  (lazy reopen on seek)       │
	└──────────────────────────────┘
	               │
	┌──────────────────────────────┐
	│  s3.Opener fetcher           │
	│  HeadObject / GetObject      │
	└──────────────────────────────┘
	               │
	┌──────────────────────────────┐
	│  aws-sdk-go-v2 s3.Client     │
	│  over transport.Transport    │
	└──────────────────────────────┘

# Client Construction

NewClient loads the default AWS configuration chain, then overrides the region, retry
attempts and, when given, static credentials and a custom endpoint:

	client, err := s3.NewClient(ctx, &s3.Config{
		Region:         "us-west-2",
		Endpoint:       "http://localhost:9000",
		ForcePathStyle: true,
	}, tr.Client())

Passing the *http.Client of a transport.Transport makes every SDK request go through the
configured proxy, trust store and keep-alive sockets.

# Errors

NoSuchKey, NotFound and NoSuchBucket responses become OBJECT_NOT_FOUND errors. Everything else
is an IO_ERROR wrapping the SDK error.
*/
package s3
