package utils

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/objectfs/readpath/pkg/errors"
)

// ResourceURI identifies a remote object. The read path treats it as opaque except for the
// scheme, which selects the channel opener.
type ResourceURI struct {
	Scheme string
	Bucket string
	Key    string

	raw string
	url *url.URL
}

// ParseResourceURI parses identifiers such as s3://bucket/key or https://host/path.
//
// Only http and https go through URL parsing. For every other scheme the key is the raw text
// after the bucket, so keys may contain '?', '#' or '%'.
func ParseResourceURI(raw string) (*ResourceURI, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.NewError(errors.ErrCodeInvalidArgument, "resource URI cannot be empty")
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return nil, errors.Newf(errors.ErrCodeInvalidArgument, "resource URI %q has no scheme", raw)
	}
	scheme = strings.ToLower(scheme)

	if scheme == "http" || scheme == "https" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidArgument, err,
				fmt.Sprintf("invalid resource URI %q", raw))
		}
		if u.Host == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidArgument, "resource URI %q has no host", raw)
		}
		return &ResourceURI{
			Scheme: scheme,
			Bucket: u.Host,
			Key:    strings.TrimPrefix(u.Path, "/"),
			raw:    raw,
			url:    u,
		}, nil
	}

	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, errors.Newf(errors.ErrCodeInvalidArgument, "resource URI %q has no bucket", raw)
	}
	if key == "" {
		return nil, errors.Newf(errors.ErrCodeInvalidArgument, "resource URI %q has no object key", raw)
	}

	return &ResourceURI{
		Scheme: scheme,
		Bucket: bucket,
		Key:    key,
		raw:    raw,
		url:    &url.URL{Scheme: scheme, Host: bucket, Path: "/" + key},
	}, nil
}

// String returns the identifier as it was given.
func (r *ResourceURI) String() string {
	return r.raw
}

// URL returns a copy of the parsed URL.
func (r *ResourceURI) URL() *url.URL {
	u := *r.url
	return &u
}

// ValidatePath validates that a file path is safe and does not contain directory traversal attempts.
//
// Example usage:
//
//	if err := ValidatePath(userProvidedPath, false); err != nil {
//		return fmt.Errorf("invalid path: %w", err)
//	}
func ValidatePath(path string, allowAbsolute bool) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	for _, elem := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if elem == ".." {
			return fmt.Errorf("path contains directory traversal: %s", path)
		}
	}

	if !allowAbsolute && filepath.IsAbs(cleanPath) {
		return fmt.Errorf("absolute paths not allowed: %s", path)
	}

	return nil
}
