package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
)

const documentContentType = "application/json"

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	IsNotExist(err error) bool
	Bucket() string
}

// ObjectDocument stores the document as a single object in a bucket.
type ObjectDocument struct {
	objects ObjectStorage
	key     string
}

// NewObjectDocument constructs a backend for the object named key.
func NewObjectDocument(objects ObjectStorage, key string) (*ObjectDocument, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("object key is required")
	}
	return &ObjectDocument{objects: objects, key: key}, nil
}

// Prepare ensures the configured bucket exists.
func (o *ObjectDocument) Prepare(ctx context.Context) error {
	return o.objects.EnsureBucket(ctx)
}

func (o *ObjectDocument) Read(ctx context.Context) ([]byte, error) {
	r, err := o.objects.Get(ctx, o.key)
	if err != nil {
		if o.objects.IsNotExist(err) {
			return nil, ErrAbsent
		}
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		// Some SDKs only report a missing object on the first read.
		if o.objects.IsNotExist(err) {
			return nil, ErrAbsent
		}
		return nil, err
	}
	return data, nil
}

func (o *ObjectDocument) Write(ctx context.Context, data []byte) error {
	return o.objects.Put(ctx, o.key, bytes.NewReader(data), int64(len(data)), documentContentType)
}

func (o *ObjectDocument) Name() string {
	return o.objects.Bucket() + "/" + o.key
}

// Close closes the object client when it holds connections.
func (o *ObjectDocument) Close() error {
	if c, ok := o.objects.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
