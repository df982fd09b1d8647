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
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"slices"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/fawa-io/avatar/pkg/fwlog"
)

// DefaultMaxResolution caps either source dimension.
const DefaultMaxResolution = 10000

// Writer persists one artifact. Implementations must never expose a
// partially written file at path.
type Writer interface {
	Write(path string, data []byte) error
}

// Options is the fixed pipeline configuration.
type Options struct {
	// Sizes are the square edge lengths to derive.
	Sizes []uint32
	// MaxResolution bounds source width and height. Zero means
	// DefaultMaxResolution.
	MaxResolution int
	// Output is the encoding of every derived artifact.
	Output Format
}

func (o Options) normalize() (Options, error) {
	if len(o.Sizes) == 0 {
		return Options{}, errors.New("at least one target size is required")
	}
	sizes := slices.Clone(o.Sizes)
	slices.Sort(sizes)
	sizes = slices.Compact(sizes)
	if sizes[0] == 0 {
		return Options{}, errors.New("target sizes must be positive")
	}
	if o.MaxResolution == 0 {
		o.MaxResolution = DefaultMaxResolution
	}
	if o.MaxResolution < 0 {
		return Options{}, fmt.Errorf("invalid max resolution %d", o.MaxResolution)
	}
	if !o.Output.CanEncode() {
		return Options{}, fmt.Errorf("output format %s cannot be encoded", o.Output)
	}
	o.Sizes = sizes
	return o, nil
}

// Source describes a successfully decoded upload.
type Source struct {
	Format Format
	Width  int
	Height int
}

// Deriver turns an uploaded image into its original and derived artifacts.
type Deriver struct {
	opts   Options
	layout Layout
	w      Writer
}

func NewDeriver(root string, opts Options, w Writer) (*Deriver, error) {
	if w == nil {
		return nil, errors.New("writer cannot be nil")
	}
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	return &Deriver{
		opts:   opts,
		layout: Layout{Root: root, Output: opts.Output},
		w:      w,
	}, nil
}

func (d *Deriver) Layout() Layout {
	return d.layout
}

// Sizes returns the configured sizes in ascending order.
func (d *Deriver) Sizes() []uint32 {
	return slices.Clone(d.opts.Sizes)
}

// Derive validates data, stores it verbatim as the original and writes one
// square artifact per configured size.
//
// Sizes are derived concurrently. A failure in one size does not stop the
// others; Derive waits for all of them and returns the first error. Files
// written by the sizes that succeeded are kept.
func (d *Deriver) Derive(ctx context.Context, key Key, data []byte) (Source, error) {
	format, err := Classify(data)
	if err != nil {
		return Source{}, err
	}
	c, _ := format.codec()

	cfg, err := c.decodeConfig(bytes.NewReader(data))
	if err != nil {
		return Source{}, fmt.Errorf("%w: %w", ErrWrongFormat, err)
	}
	if cfg.Width > d.opts.MaxResolution || cfg.Height > d.opts.MaxResolution {
		return Source{}, fmt.Errorf("%w: %dx%d exceeds %d", ErrResolutionTooLarge, cfg.Width, cfg.Height, d.opts.MaxResolution)
	}

	img, err := c.decode(bytes.NewReader(data))
	if err != nil {
		return Source{}, fmt.Errorf("%w: %w", ErrWrongFormat, err)
	}
	b := img.Bounds()
	if b.Empty() {
		return Source{}, fmt.Errorf("%w: empty image", ErrWrongFormat)
	}
	src := Source{Format: format, Width: b.Dx(), Height: b.Dy()}

	if err := ctx.Err(); err != nil {
		return src, err
	}

	if err := d.w.Write(d.layout.OriginalPath(key), data); err != nil {
		return src, fmt.Errorf("%w: original: %w", ErrIO, err)
	}

	square := cropSquare(img)

	var g errgroup.Group
	for _, size := range d.opts.Sizes {
		g.Go(func() error {
			return d.deriveSize(key, square, size)
		})
	}
	if err := g.Wait(); err != nil {
		return src, err
	}

	fwlog.Debugf("Derived %d sizes for key %s from %s %dx%d", len(d.opts.Sizes), key, format, src.Width, src.Height)
	return src, nil
}

// cropSquare copies the centered square of img into a fresh buffer that
// the per-size tasks only ever read.
func cropSquare(img image.Image) *image.RGBA {
	r := CenterSquare(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

func (d *Deriver) deriveSize(key Key, src *image.RGBA, size uint32) error {
	side := int(size)
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	c, _ := d.opts.Output.codec()
	var buf bytes.Buffer
	if err := c.encode(&buf, dst); err != nil {
		return fmt.Errorf("%w: size %d: %w", ErrEncoding, size, err)
	}
	if err := d.w.Write(d.layout.DerivedPath(key, size), buf.Bytes()); err != nil {
		return fmt.Errorf("%w: size %d: %w", ErrIO, size, err)
	}
	return nil
}
