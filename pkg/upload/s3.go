package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Store parks uploads in an S3 bucket. Use it when the analysis
// workers run on separate hosts from the web frontend.
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	store := upload.NewS3Store(s3.NewFromConfig(cfg), "forestwatch-intake", "uploads/", 16<<20)
type S3Store struct {
	client    *s3.Client
	bucket    string
	prefix    string
	maxSize   int64
	urlExpiry time.Duration
}

// NewS3Store creates an S3-backed upload store. maxSize of 0 means no
// limit.
func NewS3Store(client *s3.Client, bucket, prefix string, maxSize int64) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		maxSize:   maxSize,
		urlExpiry: 24 * time.Hour,
	}
}

// WithURLExpiry sets how long presigned URLs are valid.
func (s *S3Store) WithURLExpiry(d time.Duration) *S3Store {
	s.urlExpiry = d
	return s
}

// Save uploads a file to S3 and returns a temp ID.
func (s *S3Store) Save(filename, contentType string, size int64, r io.Reader) (string, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return "", ErrTooLarge
	}

	tempID := uuid.NewString()
	key := s.prefix + tempID

	// Buffer the file; satellite tiles stay under the intake cap.
	var buf bytes.Buffer
	if s.maxSize > 0 {
		limited := io.LimitReader(r, s.maxSize+1)
		n, err := io.Copy(&buf, limited)
		if err != nil {
			return "", err
		}
		if n > s.maxSize {
			return "", ErrTooLarge
		}
	} else {
		if _, err := io.Copy(&buf, r); err != nil {
			return "", err
		}
	}

	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": filename,
			"upload-time":       time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	return tempID, nil
}

// Claim retrieves a temp file from S3. The object is deleted once
// claimed.
func (s *S3Store) Claim(tempID string) (*File, error) {
	key := s.prefix + tempID

	headResult, err := s.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ErrNotFound
	}

	getResult, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ErrNotFound
	}

	filename := tempID
	if fn, ok := headResult.Metadata["original-filename"]; ok {
		filename = fn
	}

	contentType := "application/octet-stream"
	if headResult.ContentType != nil {
		contentType = *headResult.ContentType
	}

	size := int64(0)
	if headResult.ContentLength != nil {
		size = *headResult.ContentLength
	}

	presignClient := s3.NewPresignClient(s.client)
	presignResult, err := presignClient.PresignGetObject(context.Background(),
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(s.urlExpiry),
	)

	url := ""
	if err == nil {
		url = presignResult.URL
	}

	// Claimed means consumed; remove the temp object in the background.
	go func() {
		s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
	}()

	return &File{
		ID:          tempID,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		URL:         url,
		Reader:      getResult.Body,
	}, nil
}

// Cleanup removes expired temp objects from the bucket.
func (s *S3Store) Cleanup(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var toDelete []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return 0, err
		}
		for _, obj := range page.Contents {
			if obj.LastModified != nil && obj.LastModified.Before(cutoff) && obj.Key != nil {
				toDelete = append(toDelete, *obj.Key)
			}
		}
	}

	swept := 0
	for _, key := range toDelete {
		_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			swept++
		}
	}
	return swept, nil
}
