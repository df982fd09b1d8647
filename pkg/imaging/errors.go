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

import "errors"

var (
	// ErrWrongFormat is returned for input that is not a supported,
	// decodable image.
	ErrWrongFormat = errors.New("unsupported image format")

	// ErrResolutionTooLarge is returned when either source dimension
	// exceeds the configured ceiling. Nothing is written in that case.
	ErrResolutionTooLarge = errors.New("image resolution too large")

	// ErrArtifactNotFound means the requested artifact was never derived
	// or has been deleted.
	ErrArtifactNotFound = errors.New("image not found")

	ErrEncoding = errors.New("image encoding failed")
	ErrIO       = errors.New("image i/o failed")
)
