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

// Package httpcache implements conditional GET for stored artifacts.
//
// Validators are derived from an artifact's modification time, so an
// artifact keeps its ETag until it is rewritten. Generated content that is
// never stored uses a validator over its bytes instead.
package httpcache

import (
	"encoding/binary"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Decision is the outcome of negotiating one request.
type Decision int

const (
	// Absent means there is no artifact; the caller picks placeholder or 404.
	Absent Decision = iota
	// Serve means the client has no current copy. Send the body and ETag.
	Serve
	// NotModified means the client's copy is current. Send 304, no body.
	NotModified
)

func (d Decision) String() string {
	switch d {
	case Absent:
		return "absent"
	case Serve:
		return "serve"
	case NotModified:
		return "not-modified"
	}
	return "decision(" + strconv.Itoa(int(d)) + ")"
}

type Result struct {
	Decision Decision
	// ETag is empty only for Absent.
	ETag string
}

// Validator returns the quoted ETag for an artifact last modified at
// modTime.
func Validator(modTime time.Time) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(modTime.UnixNano()))
	return quote(xxhash.Sum64(b[:]))
}

// ContentValidator returns the quoted ETag for generated content.
func ContentValidator(data []byte) string {
	return quote(xxhash.Sum64(data))
}

func quote(h uint64) string {
	return `"` + strconv.FormatUint(h, 16) + `"`
}

// Negotiate decides how to answer a GET for an artifact. modTime is nil
// when the artifact does not exist.
func Negotiate(modTime *time.Time, ifNoneMatch string) Result {
	if modTime == nil {
		return Result{Decision: Absent}
	}
	return Evaluate(Validator(*modTime), ifNoneMatch)
}

// Evaluate answers a GET for existing content whose ETag is known.
func Evaluate(etag, ifNoneMatch string) Result {
	if Matches(ifNoneMatch, etag) {
		return Result{Decision: NotModified, ETag: etag}
	}
	return Result{Decision: Serve, ETag: etag}
}

// Matches reports whether an If-None-Match header value matches etag,
// i.e. whether the client already holds the current representation.
// Comparison is weak: a W/ prefix on either side is ignored.
func Matches(ifNoneMatch, etag string) bool {
	header := strings.TrimSpace(ifNoneMatch)
	if header == "" || etag == "" {
		return false
	}
	want := opaque(etag)
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" {
			return true
		}
		if got := opaque(tag); got != "" && got == want {
			return true
		}
	}
	return false
}

// opaque strips the weakness marker and returns the quoted tag, or "" if
// tag is malformed.
func opaque(tag string) string {
	tag = strings.TrimPrefix(tag, "W/")
	if len(tag) < 2 || tag[0] != '"' || tag[len(tag)-1] != '"' {
		return ""
	}
	return tag
}

// SetValidator writes the caching headers for a representation with the
// given ETag. Clients may store it but must revalidate before reuse.
func SetValidator(h http.Header, etag string) {
	if etag == "" {
		return
	}
	h.Set("ETag", etag)
	h.Set("Cache-Control", "no-cache")
}
