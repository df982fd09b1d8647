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

package imaging

import (
	"path/filepath"
	"strconv"
)

// Key identifies every artifact that belongs to one uploaded image. It is
// the owning user's id.
type Key uint32

func (k Key) String() string {
	return strconv.FormatUint(uint64(k), 10)
}

// Layout names artifacts on disk. The original lives at <root>/<key>,
// each derived size at <root>/<key>.<size>.<ext>. The original has no dot,
// so it can never collide with a derived name.
type Layout struct {
	Root   string
	Output Format
}

func (l Layout) OriginalPath(key Key) string {
	return filepath.Join(l.Root, key.String())
}

func (l Layout) DerivedPath(key Key, size uint32) string {
	name := key.String() + "." + strconv.FormatUint(uint64(size), 10) + "." + l.Output.Extension()
	return filepath.Join(l.Root, name)
}

// ContentType is the MIME type of every derived artifact.
func (l Layout) ContentType() string {
	return l.Output.MIMEType()
}
