package volume

import (
	"bytes"
	"fmt"
	"io"

	"github.com/weberc2/fsck/pkg/types"
)

// Object is an image loaded whole from an object store. `Flush` uploads
// the buffer back to the same key.
type Object struct {
	store    types.ObjectStore
	bucket   string
	key      string
	data     []byte
	writable bool
}

func OpenObject(
	store types.ObjectStore,
	bucket string,
	key string,
	writable bool,
) (*Object, error) {
	body, err := store.GetObject(bucket, key)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf(
			"reading image from bucket `%s` at key `%s`: %w",
			bucket,
			key,
			err,
		)
	}
	if len(data) < 1 {
		return nil, fmt.Errorf("reading image `%s`: %w", key, EmptyErr)
	}
	return &Object{
		store:    store,
		bucket:   bucket,
		key:      key,
		data:     data,
		writable: writable,
	}, nil
}

// NewObject returns a writable, zeroed image of `size` bytes that `Flush`
// will create at `bucket`/`key`.
func NewObject(
	store types.ObjectStore,
	bucket string,
	key string,
	size types.Byte,
) *Object {
	return &Object{
		store:    store,
		bucket:   bucket,
		key:      key,
		data:     make([]byte, size),
		writable: true,
	}
}

func (o *Object) Bytes() []byte { return o.data }

func (o *Object) Flush() error {
	if !o.writable {
		return nil
	}
	if err := o.store.PutObject(
		o.bucket,
		o.key,
		bytes.NewReader(o.data),
	); err != nil {
		return fmt.Errorf("uploading image: %w", err)
	}
	return nil
}

func (o *Object) Close() error { return nil }
