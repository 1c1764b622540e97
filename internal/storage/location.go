package storage

import (
	"fmt"
	"strings"

	"BitcoinSentinel/internal/model"
)

// Location addresses one object: a bucket and a key inside it.
type Location struct {
	Bucket string
	Key    string
}

// ParseLocation accepts "bucket/key/with/slashes", optionally prefixed with "s3://".
func ParseLocation(s string) (Location, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "s3://")
	bucket, key, ok := strings.Cut(s, "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return Location{}, fmt.Errorf("%w: storage location %q must be bucket/key", model.ErrInvalidArgument, s)
	}
	loc := Location{Bucket: bucket, Key: key}
	if err := loc.Validate(); err != nil {
		return Location{}, err
	}
	return loc, nil
}

// Validate rejects "." and ".." segments and backslashes, which would let a
// key resolve outside its bucket on a file-backed store.
func (l Location) Validate() error {
	if l.Bucket == "" || l.Key == "" {
		return fmt.Errorf("%w: storage location %q must be bucket/key", model.ErrInvalidArgument, l.String())
	}
	if l.Bucket == "." || l.Bucket == ".." || strings.ContainsAny(l.Bucket, `/\`) {
		return fmt.Errorf("%w: invalid bucket %q", model.ErrInvalidArgument, l.Bucket)
	}
	if strings.Contains(l.Key, `\`) {
		return fmt.Errorf("%w: invalid key %q", model.ErrInvalidArgument, l.Key)
	}
	for _, seg := range strings.Split(l.Key, "/") {
		if seg == "." || seg == ".." {
			return fmt.Errorf("%w: key %q contains a relative path segment", model.ErrInvalidArgument, l.Key)
		}
	}
	return nil
}

func (l Location) String() string { return l.Bucket + "/" + l.Key }
