// Copyright 2025 The fawa Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fawa-io/avatar/pkg/fwlog"
)

// Archive keeps an off-host copy of every original upload so the derived
// set can be rebuilt later. It is never used to serve images.
type Archive interface {
	PutOriginal(ctx context.Context, key uint32, data []byte, contentType string) error
	RemoveOriginal(ctx context.Context, key uint32) error
}

// MinioArchive holds the client and bucket for MinIO operations.
type MinioArchive struct {
	client     *minio.Client
	bucketName string
}

// MinioOptions mirrors the minio section of the service config.
type MinioOptions struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	// Region skips the bucket location lookup when set.
	Region string
}

// NewMinioArchive creates the client and makes sure the bucket exists.
func NewMinioArchive(ctx context.Context, opts MinioOptions) (*MinioArchive, error) {
	if opts.Endpoint == "" || opts.AccessKeyID == "" || opts.SecretAccessKey == "" || opts.Bucket == "" {
		return nil, errors.New("minio endpoint, credentials and bucket are required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if MinIO bucket '%s' exists: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("failed to create MinIO bucket '%s': %w", opts.Bucket, err)
		}
		fwlog.Infof("Created MinIO bucket: %s", opts.Bucket)
	}

	return &MinioArchive{client: client, bucketName: opts.Bucket}, nil
}

func originalObjectName(key uint32) string {
	return "originals/" + strconv.FormatUint(uint64(key), 10)
}

// PutOriginal uploads the verbatim original for key, replacing any
// previous copy.
func (m *MinioArchive) PutOriginal(ctx context.Context, key uint32, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucketName, originalObjectName(key), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// RemoveOriginal deletes the archived original. S3 treats a missing
// object as success.
func (m *MinioArchive) RemoveOriginal(ctx context.Context, key uint32) error {
	return m.client.RemoveObject(ctx, m.bucketName, originalObjectName(key), minio.RemoveObjectOptions{})
}
