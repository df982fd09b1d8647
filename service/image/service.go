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

package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fawa-io/avatar/pkg/fwlog"
	"github.com/fawa-io/avatar/pkg/httpcache"
	"github.com/fawa-io/avatar/pkg/imaging"
	"github.com/fawa-io/avatar/pkg/placeholder"
	"github.com/fawa-io/avatar/pkg/storage"
)

// DefaultSize is served when a request names no size.
const DefaultSize uint32 = 256

// Service stores, serves and deletes the images of one artifact root.
// It keeps no per-request state; the filesystem is the only shared
// resource.
//
// Uploads for the same key are not serialized. Concurrent uploads race per
// file and the last writer wins.
type Service struct {
	deriver     *imaging.Deriver
	store       *storage.FileStore
	index       storage.Index
	archive     storage.Archive
	defaultSize uint32
	now         func() time.Time
}

type Option func(*Service)

// WithIndex records upload metadata after each successful upload.
func WithIndex(idx storage.Index) Option {
	return func(s *Service) {
		s.index = idx
	}
}

// WithArchive copies each successfully processed original to an archive.
func WithArchive(a storage.Archive) Option {
	return func(s *Service) {
		s.archive = a
	}
}

func WithDefaultSize(size uint32) Option {
	return func(s *Service) {
		if size > 0 {
			s.defaultSize = size
		}
	}
}

func NewService(deriver *imaging.Deriver, store *storage.FileStore, opts ...Option) *Service {
	s := &Service{
		deriver:     deriver,
		store:       store,
		defaultSize: DefaultSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store derives every configured size from data.
//
// Validation errors (imaging.ErrWrongFormat, imaging.ErrResolutionTooLarge)
// leave the store untouched. Any other error may leave some sizes updated
// and others not; a retried upload completes the set.
func (s *Service) Store(ctx context.Context, key imaging.Key, data []byte) error {
	src, err := s.deriver.Derive(ctx, key, data)
	if err != nil {
		return err
	}

	if s.index != nil {
		rec := &storage.Record{
			Format:     src.Format.String(),
			Width:      src.Width,
			Height:     src.Height,
			Output:     s.deriver.Layout().Output.String(),
			Sizes:      s.deriver.Sizes(),
			UploadedAt: s.now().UTC(),
		}
		if err := s.index.SaveRecord(ctx, uint32(key), rec); err != nil {
			fwlog.Warnf("Failed to index upload for key %s: %v", key, err)
		}
	}
	if s.archive != nil {
		if err := s.archive.PutOriginal(ctx, uint32(key), data, src.Format.MIMEType()); err != nil {
			fwlog.Warnf("Failed to archive original for key %s: %v", key, err)
		}
	}

	fwlog.Infof("Stored image for key %s (%s %dx%d)", key, src.Format, src.Width, src.Height)
	return nil
}

type FetchRequest struct {
	Key imaging.Key
	// Size is the requested edge length; nil selects the default size.
	Size *uint32
	// Placeholder allows a generated image when nothing is stored.
	Placeholder bool
	// IfNoneMatch is the raw If-None-Match header.
	IfNoneMatch string
}

// FetchResult is either a body to send (Decision == httpcache.Serve) or a
// bare 304 (httpcache.NotModified). Body is nil for 304s; otherwise the
// caller must close it.
type FetchResult struct {
	Decision    httpcache.Decision
	ETag        string
	ContentType string
	Size        uint32
	Length      int64
	Placeholder bool
	Body        io.ReadCloser
}

// Fetch resolves the requested size and negotiates against the stored
// artifact. It returns imaging.ErrArtifactNotFound when nothing is stored
// and no placeholder is allowed.
func (s *Service) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	requested := s.defaultSize
	if req.Size != nil {
		requested = *req.Size
	}
	size := imaging.Resolve(requested, s.deriver.Sizes())
	layout := s.deriver.Layout()

	// Stat the opened handle rather than the path, so the validator always
	// describes the bytes being sent.
	f, info, err := s.store.Open(layout.DerivedPath(req.Key, size))
	var modTime *time.Time
	switch {
	case err == nil:
		mt := info.ModTime()
		modTime = &mt
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("%w: open size %d: %w", imaging.ErrIO, size, err)
	}

	res := httpcache.Negotiate(modTime, req.IfNoneMatch)
	switch res.Decision {
	case httpcache.NotModified:
		_ = f.Close()
		return &FetchResult{Decision: res.Decision, ETag: res.ETag, ContentType: layout.ContentType(), Size: size}, nil
	case httpcache.Serve:
		return &FetchResult{
			Decision:    res.Decision,
			ETag:        res.ETag,
			ContentType: layout.ContentType(),
			Size:        size,
			Length:      info.Size(),
			Body:        f,
		}, nil
	}

	if !req.Placeholder {
		return nil, imaging.ErrArtifactNotFound
	}
	body := placeholder.Generate(uint32(req.Key))
	res = httpcache.Evaluate(httpcache.ContentValidator(body), req.IfNoneMatch)
	out := &FetchResult{
		Decision:    res.Decision,
		ETag:        res.ETag,
		ContentType: placeholder.ContentType,
		Size:        size,
		Placeholder: true,
	}
	if res.Decision == httpcache.Serve {
		out.Length = int64(len(body))
		out.Body = io.NopCloser(bytes.NewReader(body))
	}
	return out, nil
}

// Delete removes the original and every derived size for key. Missing
// files are fine, so Delete can be repeated safely. Removal continues past
// failures and the first one is returned.
func (s *Service) Delete(ctx context.Context, key imaging.Key) error {
	layout := s.deriver.Layout()
	paths := make([]string, 0, len(s.deriver.Sizes())+1)
	for _, size := range s.deriver.Sizes() {
		paths = append(paths, layout.DerivedPath(key, size))
	}
	paths = append(paths, layout.OriginalPath(key))

	var firstErr error
	for _, p := range paths {
		if err := s.store.Remove(p); err != nil {
			fwlog.Errorf("Failed to remove %s: %v", p, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: remove: %w", imaging.ErrIO, err)
			}
		}
	}

	if s.index != nil {
		if err := s.index.DeleteRecord(ctx, uint32(key)); err != nil {
			fwlog.Warnf("Failed to drop index record for key %s: %v", key, err)
		}
	}
	if s.archive != nil {
		if err := s.archive.RemoveOriginal(ctx, uint32(key)); err != nil {
			fwlog.Warnf("Failed to remove archived original for key %s: %v", key, err)
		}
	}

	if firstErr == nil {
		fwlog.Infof("Deleted images for key %s", key)
	}
	return firstErr
}

// State summarizes which artifacts exist for a key.
type State int

const (
	StateAbsent State = iota
	StatePartiallyDerived
	StateComplete
)

func (st State) String() string {
	switch st {
	case StateAbsent:
		return "absent"
	case StatePartiallyDerived:
		return "partially-derived"
	case StateComplete:
		return "complete"
	}
	return "unknown"
}

type SizeStatus struct {
	Size    uint32
	Present bool
	ETag    string
}

type Description struct {
	Key      imaging.Key
	State    State
	Original bool
	Sizes    []SizeStatus
	// Record is nil without an index or before the first upload.
	Record *storage.Record
}

// Describe reports which artifacts exist for key.
func (s *Service) Describe(ctx context.Context, key imaging.Key) (*Description, error) {
	layout := s.deriver.Layout()
	d := &Description{Key: key}

	present := 0
	for _, size := range s.deriver.Sizes() {
		st := SizeStatus{Size: size}
		info, err := s.store.Stat(layout.DerivedPath(key, size))
		switch {
		case err == nil:
			st.Present = true
			st.ETag = httpcache.Validator(info.ModTime())
			present++
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%w: stat size %d: %w", imaging.ErrIO, size, err)
		}
		d.Sizes = append(d.Sizes, st)
	}

	if _, err := s.store.Stat(layout.OriginalPath(key)); err == nil {
		d.Original = true
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: stat original: %w", imaging.ErrIO, err)
	}

	switch {
	case present == len(d.Sizes):
		d.State = StateComplete
	case present == 0 && !d.Original:
		d.State = StateAbsent
	default:
		d.State = StatePartiallyDerived
	}

	if s.index != nil {
		rec, err := s.index.GetRecord(ctx, uint32(key))
		switch {
		case err == nil:
			d.Record = rec
		case !errors.Is(err, storage.ErrNotFound):
			fwlog.Warnf("Failed to read index record for key %s: %v", key, err)
		}
	}
	return d, nil
}
