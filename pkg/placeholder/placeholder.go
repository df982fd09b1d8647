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

// Package placeholder draws the image served for keys without an upload.
package placeholder

import (
	"fmt"
	"math/rand"
	"strings"
)

// ContentType of every generated placeholder.
const ContentType = "image/svg+xml"

const (
	grid     = 5
	cell     = 20
	padding  = 10
	viewSize = grid*cell + 2*padding
)

// Generate returns an SVG identicon for key: a horizontally mirrored 5x5
// pattern in a key-specific colour. The output depends on key only.
func Generate(key uint32) []byte {
	// math/rand sources are stable for a given seed
	r := rand.New(rand.NewSource(int64(key)))

	hue := r.Intn(360)
	sat := 45 + r.Intn(25)
	light := 40 + r.Intn(20)
	round := r.Intn(2) == 1

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`, viewSize, viewSize, viewSize, viewSize)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="hsl(%d,%d%%,94%%)"/>`, viewSize, viewSize, hue, sat/2)
	fmt.Fprintf(&b, `<g fill="hsl(%d,%d%%,%d%%)">`, hue, sat, light)

	half := (grid + 1) / 2
	for row := 0; row < grid; row++ {
		for col := 0; col < half; col++ {
			if r.Intn(2) == 0 {
				continue
			}
			writeCell(&b, col, row, round)
			if mirror := grid - 1 - col; mirror != col {
				writeCell(&b, mirror, row, round)
			}
		}
	}

	b.WriteString(`</g></svg>`)
	return []byte(b.String())
}

func writeCell(b *strings.Builder, col, row int, round bool) {
	x := padding + col*cell
	y := padding + row*cell
	if round {
		fmt.Fprintf(b, `<circle cx="%d" cy="%d" r="%d"/>`, x+cell/2, y+cell/2, cell/2)
		return
	}
	fmt.Fprintf(b, `<rect x="%d" y="%d" width="%d" height="%d"/>`, x, y, cell, cell)
}
