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
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"

	"connectrpc.com/connect"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService(t *testing.T) {
	f := newFixture(t, 0, WithIndex(newMemIndex()))
	mux := http.NewServeMux()
	mux.Handle(NewAdminServiceHandler(NewAdminHandler(f.svc)))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewAdminClient(srv.Client(), srv.URL+"/")
	ctx := context.Background()

	out, err := client.Describe(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, "absent", out.GetFields()["state"].GetStringValue())
	assert.NotContains(t, out.GetFields(), "record")

	require.NoError(t, f.svc.Store(ctx, 12, solidPNG(t, 40, 40)))

	out, err = client.Describe(ctx, 12)
	require.NoError(t, err)
	fields := out.AsMap()
	assert.Equal(t, "complete", fields["state"])
	assert.Equal(t, true, fields["original"])
	assert.Equal(t, float64(12), fields["key"])
	sizes, ok := fields["sizes"].([]any)
	require.True(t, ok)
	assert.Len(t, sizes, len(testSizes))
	record, ok := fields["record"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "png", record["format"])
	assert.Equal(t, float64(40), record["width"])

	require.NoError(t, client.Purge(ctx, 12))
	assert.Equal(t, 0, f.fileCount(t))

	out, err = client.Describe(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, "absent", out.GetFields()["state"].GetStringValue())
}

func TestAdminService_UnknownProcedure(t *testing.T) {
	f := newFixture(t, 0)
	path, handler := NewAdminServiceHandler(NewAdminHandler(f.svc))
	assert.Equal(t, "/fawa.image.v1.ImageAdminService/", path)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path+"Nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// deniedFs refuses removals and stats under the image root.
type deniedFs struct {
	afero.Fs
	stat bool
}

func (d deniedFs) Remove(name string) error {
	return &os.PathError{Op: "remove", Path: name, Err: syscall.EACCES}
}

func (d deniedFs) Stat(name string) (os.FileInfo, error) {
	if d.stat && strings.HasPrefix(name, testRoot+"/") {
		return nil, &os.PathError{Op: "stat", Path: name, Err: syscall.EACCES}
	}
	return d.Fs.Stat(name)
}

func TestAdminService_StoreFailuresStayInternal(t *testing.T) {
	testCases := []struct {
		name string
		stat bool
		call func(ctx context.Context, c *AdminClient) error
	}{
		{"purge", false, func(ctx context.Context, c *AdminClient) error { return c.Purge(ctx, 42) }},
		{"describe", true, func(ctx context.Context, c *AdminClient) error {
			_, err := c.Describe(ctx, 42)
			return err
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixtureOn(t, deniedFs{Fs: afero.NewMemMapFs(), stat: tc.stat}, 0)
			mux := http.NewServeMux()
			mux.Handle(NewAdminServiceHandler(NewAdminHandler(f.svc)))
			srv := httptest.NewServer(mux)
			t.Cleanup(srv.Close)

			err := tc.call(context.Background(), NewAdminClient(srv.Client(), srv.URL))
			require.Error(t, err)
			assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
			assert.NotContains(t, err.Error(), testRoot)
			assert.NotContains(t, err.Error(), "permission denied")
		})
	}
}
