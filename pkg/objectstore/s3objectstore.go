package objectstore

import (
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/weberc2/fsck/pkg/types"
)

// S3ObjectStore stores images and reports in S3.
type S3ObjectStore struct {
	Client *s3.S3
}

// NewS3ObjectStore builds a client from the default AWS credential chain.
// An empty `region` defers to `AWS_REGION` and the shared config.
func NewS3ObjectStore(region string) (*S3ObjectStore, error) {
	config := aws.NewConfig()
	if region != "" {
		config = config.WithRegion(region)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *config,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}
	return &S3ObjectStore{Client: s3.New(sess)}, nil
}

func (os *S3ObjectStore) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	if _, err := os.Client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	}); err != nil {
		return fmt.Errorf(
			"putting object in bucket `%s` at key `%s`: %w",
			bucket,
			key,
			err,
		)
	}
	return nil
}

func (os *S3ObjectStore) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	rsp, err := os.Client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, &types.ObjectNotFoundErr{Bucket: bucket, Key: key}
		}
		return nil, fmt.Errorf(
			"getting object from bucket `%s` at key `%s`: %w",
			bucket,
			key,
			err,
		)
	}
	return rsp.Body, nil
}

func (os *S3ObjectStore) ListObjects(
	bucket string,
	prefix string,
) ([]string, error) {
	var keys []string
	if err := os.Client.ListObjectsPages(
		&s3.ListObjectsInput{
			Bucket: aws.String(bucket),
			Prefix: aws.String(prefix),
		},
		func(rsp *s3.ListObjectsOutput, lastPage bool) bool {
			for _, object := range rsp.Contents {
				keys = append(keys, aws.StringValue(object.Key))
			}
			return true
		},
	); err != nil {
		return keys, fmt.Errorf(
			"listing objects in bucket `%s` with prefix `%s`: %w",
			bucket,
			prefix,
			err,
		)
	}
	return keys, nil
}

func (os *S3ObjectStore) DeleteObject(bucket, key string) error {
	if _, err := os.Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf(
			"deleting object from bucket `%s` at key `%s`: %w",
			bucket,
			key,
			err,
		)
	}
	return nil
}

var _ types.ObjectStore = (*S3ObjectStore)(nil)
