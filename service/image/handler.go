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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/fawa-io/avatar/pkg/fwlog"
	"github.com/fawa-io/avatar/pkg/httpcache"
	"github.com/fawa-io/avatar/pkg/imaging"
)

// DefaultMaxUploadBytes caps request bodies on upload.
const DefaultMaxUploadBytes int64 = 10 << 20

// Handler exposes a Service over plain HTTP.
type Handler struct {
	svc            *Service
	maxUploadBytes int64
}

func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Register mounts the image routes and the health check on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /image/{id}", h.Upload)
	mux.HandleFunc("GET /image/{id}", h.Get)
	mux.HandleFunc("DELETE /image/{id}", h.Delete)
	mux.HandleFunc("GET /health", Health)
}

// Upload stores the request body as the image for {id}.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKey(w, r)
	if !ok {
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fwlog.Infof("Rejected upload for key %s: body exceeds %d bytes", key, tooLarge.Limit)
			http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
			return
		}
		fwlog.Warnf("Failed to read upload for key %s: %v", key, err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := h.svc.Store(r.Context(), key, data); err != nil {
		writeError(w, key, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get serves {id} at the size closest to ?size=. ?placeholder=false turns
// the generated fallback off.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKey(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := FetchRequest{Key: key, Placeholder: true, IfNoneMatch: r.Header.Get("If-None-Match")}
	if v := q.Get("size"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			http.Error(w, "invalid size", http.StatusBadRequest)
			return
		}
		size := uint32(n)
		req.Size = &size
	}
	if v := q.Get("placeholder"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid placeholder flag", http.StatusBadRequest)
			return
		}
		req.Placeholder = b
	}

	res, err := h.svc.Fetch(r.Context(), req)
	if err != nil {
		writeError(w, key, err)
		return
	}

	httpcache.SetValidator(w.Header(), res.ETag)
	if res.Decision == httpcache.NotModified {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			fwlog.Warnf("Failed to close image for key %s: %v", key, err)
		}
	}()

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(res.Length, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, res.Body); err != nil {
		fwlog.Debugf("Failed to send image for key %s: %v", key, err)
	}
}

// Delete removes every stored artifact for {id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKey(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), key); err != nil {
		writeError(w, key, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"service":   "avatar",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func parseKey(w http.ResponseWriter, r *http.Request) (imaging.Key, bool) {
	n, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		http.Error(w, "invalid image id", http.StatusBadRequest)
		return 0, false
	}
	return imaging.Key(n), true
}

// writeError maps service errors to status codes. Internal details are
// logged, never sent.
func writeError(w http.ResponseWriter, key imaging.Key, err error) {
	switch {
	case errors.Is(err, imaging.ErrWrongFormat):
		fwlog.Infof("Rejected upload for key %s: %v", key, err)
		http.Error(w, "unsupported image format", http.StatusBadRequest)
	case errors.Is(err, imaging.ErrResolutionTooLarge):
		fwlog.Infof("Rejected upload for key %s: %v", key, err)
		http.Error(w, "image resolution too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, imaging.ErrArtifactNotFound):
		fwlog.Debugf("No image for key %s", key)
		http.Error(w, "image not found", http.StatusNotFound)
	default:
		fwlog.Errorf("Request for key %s failed: %v", key, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
