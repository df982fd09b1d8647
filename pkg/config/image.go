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

package config

import (
	"fmt"
	"slices"

	"github.com/fawa-io/avatar/pkg/imaging"
)

// Options converts the image section into pipeline options.
func (c ImageConfig) Options() (imaging.Options, error) {
	out, err := imaging.ParseFormat(c.Output)
	if err != nil {
		return imaging.Options{}, fmt.Errorf("image.output: %w", err)
	}
	return imaging.Options{
		Sizes:         slices.Clone(c.Sizes),
		MaxResolution: c.MaxResolution,
		Output:        out,
	}, nil
}
