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
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Record describes the last successful upload for a key.
type Record struct {
	Format     string    `json:"format"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Output     string    `json:"output"`
	Sizes      []uint32  `json:"sizes"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Index stores upload records. It is informational: the files on disk are
// the source of truth for serving.
type Index interface {
	SaveRecord(ctx context.Context, key uint32, rec *Record) error
	GetRecord(ctx context.Context, key uint32) (*Record, error)
	DeleteRecord(ctx context.Context, key uint32) error
	Close() error
}

const recordKeyPrefix = "avatar:image:"

func recordKey(key uint32) string {
	return recordKeyPrefix + strconv.FormatUint(uint64(key), 10)
}

// DragonflyIndex implements the Index interface using Dragonfly/Redis.
type DragonflyIndex struct {
	client redis.Cmdable
	close  func() error
}

// NewDragonflyIndex connects to addr and checks the connection.
func NewDragonflyIndex(ctx context.Context, addr, password string, db int) (*DragonflyIndex, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &DragonflyIndex{client: client, close: client.Close}, nil
}

// SaveRecord implements the Index interface. Records do not expire; they
// are removed together with the artifacts.
func (d *DragonflyIndex) SaveRecord(ctx context.Context, key uint32, rec *Record) error {
	if rec == nil {
		return errors.New("record cannot be nil")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return d.client.Set(ctx, recordKey(key), data, 0).Err()
}

// GetRecord implements the Index interface.
func (d *DragonflyIndex) GetRecord(ctx context.Context, key uint32) (*Record, error) {
	val, err := d.client.Get(ctx, recordKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteRecord implements the Index interface. Deleting a missing record
// succeeds.
func (d *DragonflyIndex) DeleteRecord(ctx context.Context, key uint32) error {
	return d.client.Del(ctx, recordKey(key)).Err()
}

func (d *DragonflyIndex) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}
