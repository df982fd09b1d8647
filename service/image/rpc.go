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
	"errors"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/fawa-io/avatar/pkg/fwlog"
	"github.com/fawa-io/avatar/pkg/imaging"
)

const (
	// AdminServiceName is the fully-qualified name of the admin service.
	AdminServiceName = "fawa.image.v1.ImageAdminService"

	AdminServiceDescribeProcedure = "/" + AdminServiceName + "/Describe"
	AdminServicePurgeProcedure    = "/" + AdminServiceName + "/Purge"
)

// internalError hides store failures from callers. Their text names
// artifact paths, so it stays in the log.
func internalError() *connect.Error {
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}

// AdminHandler implements the admin RPCs on top of a Service.
type AdminHandler struct {
	svc *Service
}

func NewAdminHandler(svc *Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Describe reports which artifacts exist for the requested key.
func (h *AdminHandler) Describe(
	ctx context.Context,
	req *connect.Request[wrapperspb.UInt32Value],
) (*connect.Response[structpb.Struct], error) {
	key := imaging.Key(req.Msg.GetValue())
	d, err := h.svc.Describe(ctx, key)
	if err != nil {
		fwlog.Errorf("Describe failed for key %s: %v", key, err)
		return nil, internalError()
	}

	out, err := structpb.NewStruct(describeFields(d))
	if err != nil {
		fwlog.Errorf("Failed to encode description for key %s: %v", key, err)
		return nil, internalError()
	}
	return connect.NewResponse(out), nil
}

// Purge deletes every stored artifact for the requested key.
func (h *AdminHandler) Purge(
	ctx context.Context,
	req *connect.Request[wrapperspb.UInt32Value],
) (*connect.Response[emptypb.Empty], error) {
	key := imaging.Key(req.Msg.GetValue())
	if err := h.svc.Delete(ctx, key); err != nil {
		fwlog.Errorf("Purge failed for key %s: %v", key, err)
		return nil, internalError()
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func describeFields(d *Description) map[string]any {
	sizes := make([]any, 0, len(d.Sizes))
	for _, st := range d.Sizes {
		sizes = append(sizes, map[string]any{
			"size":    st.Size,
			"present": st.Present,
			"etag":    st.ETag,
		})
	}
	fields := map[string]any{
		"key":      uint32(d.Key),
		"state":    d.State.String(),
		"original": d.Original,
		"sizes":    sizes,
	}
	if rec := d.Record; rec != nil {
		recSizes := make([]any, 0, len(rec.Sizes))
		for _, s := range rec.Sizes {
			recSizes = append(recSizes, s)
		}
		fields["record"] = map[string]any{
			"format":     rec.Format,
			"width":      rec.Width,
			"height":     rec.Height,
			"output":     rec.Output,
			"sizes":      recSizes,
			"uploadedAt": rec.UploadedAt.Format(time.RFC3339),
		}
	}
	return fields
}

// NewAdminServiceHandler builds an HTTP handler for the admin service. It
// returns the path on which to mount the handler and the handler itself.
func NewAdminServiceHandler(h *AdminHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	describe := connect.NewUnaryHandler(AdminServiceDescribeProcedure, h.Describe, opts...)
	purge := connect.NewUnaryHandler(AdminServicePurgeProcedure, h.Purge, opts...)
	return "/" + AdminServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case AdminServiceDescribeProcedure:
			describe.ServeHTTP(w, r)
		case AdminServicePurgeProcedure:
			purge.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// AdminClient calls the admin service.
type AdminClient struct {
	describe *connect.Client[wrapperspb.UInt32Value, structpb.Struct]
	purge    *connect.Client[wrapperspb.UInt32Value, emptypb.Empty]
}

// NewAdminClient constructs a client for the admin service. baseURL is the
// server root, e.g. https://localhost:8080.
func NewAdminClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AdminClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &AdminClient{
		describe: connect.NewClient[wrapperspb.UInt32Value, structpb.Struct](httpClient, baseURL+AdminServiceDescribeProcedure, opts...),
		purge:    connect.NewClient[wrapperspb.UInt32Value, emptypb.Empty](httpClient, baseURL+AdminServicePurgeProcedure, opts...),
	}
}

func (c *AdminClient) Describe(ctx context.Context, key uint32) (*structpb.Struct, error) {
	res, err := c.describe.CallUnary(ctx, connect.NewRequest(wrapperspb.UInt32(key)))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *AdminClient) Purge(ctx context.Context, key uint32) error {
	_, err := c.purge.CallUnary(ctx, connect.NewRequest(wrapperspb.UInt32(key)))
	return err
}
