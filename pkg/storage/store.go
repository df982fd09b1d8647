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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/fawa-io/avatar/pkg/fwlog"
)

// ErrNotFound is returned when a path or record does not exist.
var ErrNotFound = errors.New("not found")

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// FileStore is the artifact store: plain files under one root directory.
// It holds no state besides the filesystem and the root path.
type FileStore struct {
	fs   afero.Fs
	root string
}

// NewFileStore creates a store over fs. Paths handed to the store are
// expected to live under root.
func NewFileStore(fs afero.Fs, root string) *FileStore {
	return &FileStore{fs: fs, root: root}
}

func (s *FileStore) Root() string {
	return s.root
}

// EnsureRoot creates the root directory if needed. Call it once at
// startup, before the first write.
func (s *FileStore) EnsureRoot() error {
	return s.fs.MkdirAll(s.root, dirMode)
}

// Open returns the file at path and its info. The caller closes the file.
func (s *FileStore) Open(path string) (afero.File, os.FileInfo, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, nil, notFound(err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, notFound(err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}

func (s *FileStore) Stat(path string) (os.FileInfo, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, notFound(err)
	}
	return info, nil
}

// Write replaces the file at path. The data goes to a temporary file in
// the same directory first and is renamed into place, so readers see
// either the old file, the new file, or nothing.
func (s *FileStore) Write(path string, data []byte) (err error) {
	tmp, err := afero.TempFile(s.fs, filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			if rmErr := s.fs.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				fwlog.Warnf("Failed to remove temp file %s: %v", tmpName, rmErr)
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = s.fs.Chmod(tmpName, fileMode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = s.fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Remove deletes path. A missing file is not an error.
func (s *FileStore) Remove(path string) error {
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
