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

package httpcache

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var quoted = regexp.MustCompile(`^"[0-9a-f]+"$`)

func TestValidator(t *testing.T) {
	t1 := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Nanosecond)

	assert.Regexp(t, quoted, Validator(t1))
	assert.Equal(t, Validator(t1), Validator(t1.In(time.FixedZone("x", 3600))), "same instant, same validator")
	assert.NotEqual(t, Validator(t1), Validator(t2))

	assert.Regexp(t, quoted, ContentValidator([]byte("<svg/>")))
	assert.Equal(t, ContentValidator([]byte("a")), ContentValidator([]byte("a")))
}

func TestNegotiate(t *testing.T) {
	mod := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	current := Validator(mod)
	stale := Validator(mod.Add(-time.Second))

	testCases := []struct {
		name        string
		modTime     *time.Time
		ifNoneMatch string
		want        Decision
	}{
		{"absent", nil, "", Absent},
		{"absent ignores header", nil, current, Absent},
		{"no header", &mod, "", Serve},
		{"stale", &mod, stale, Serve},
		{"current", &mod, current, NotModified},
		{"weak current", &mod, "W/" + current, NotModified},
		{"list with current", &mod, stale + ", " + current, NotModified},
		{"wildcard", &mod, "*", NotModified},
		{"unquoted", &mod, current[1 : len(current)-1], Serve},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Negotiate(tc.modTime, tc.ifNoneMatch)
			assert.Equal(t, tc.want, got.Decision)
			if tc.want == Absent {
				assert.Empty(t, got.ETag)
			} else {
				assert.Equal(t, current, got.ETag)
			}
		})
	}
}

func TestSetValidator(t *testing.T) {
	h := http.Header{}
	SetValidator(h, "")
	assert.Empty(t, h)

	SetValidator(h, `"abc"`)
	assert.Equal(t, `"abc"`, h.Get("ETag"))
	assert.Equal(t, "no-cache", h.Get("Cache-Control"))
}
