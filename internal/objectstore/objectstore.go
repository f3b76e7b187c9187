// Package objectstore persists the raw downloaded source documents
// (PDFs) to MinIO, keyed by source id. Ingestion always downloads from
// the publisher URL; the stored copy is not read back by the pipeline.
package objectstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const bucketName = "ruleoracle-sources"

type Store struct {
	client *minio.Client
}

func New(endpoint, accessKey, secretKey string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: new client: %w", err)
	}
	return &Store{client: client}, nil
}

// EnsureBucket creates the source-document bucket if it doesn't exist;
// called once at startup.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("objectstore: bucket exists: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("objectstore: make bucket: %w", err)
		}
	}
	return nil
}

func objectKey(sourceID int64) string {
	return fmt.Sprintf("sources/%d.pdf", sourceID)
}

// Put stores the raw PDF bytes downloaded for a source, overwriting any
// prior object for the same source id.
func (s *Store) Put(ctx context.Context, sourceID int64, pdfBytes []byte) error {
	_, err := s.client.PutObject(ctx, bucketName, objectKey(sourceID),
		bytes.NewReader(pdfBytes), int64(len(pdfBytes)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return fmt.Errorf("objectstore: put %d: %w", sourceID, err)
	}
	return nil
}

// Get retrieves a previously stored source's raw PDF bytes.
func (s *Store) Get(ctx context.Context, sourceID int64) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucketName, objectKey(sourceID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("objectstore: get %d: %w", sourceID, err)
	}
	defer obj.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(obj); err != nil {
		return nil, fmt.Errorf("objectstore: read %d: %w", sourceID, err)
	}
	return buf.Bytes(), nil
}
