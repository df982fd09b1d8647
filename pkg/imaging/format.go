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
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/webp"
)

// Format is one of the encodings accepted for upload.
type Format int

const (
	FormatUnknown Format = iota
	JPEG
	PNG
	WEBP
)

type codec struct {
	name         string
	ext          string
	mime         string
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
	// nil when the format can be read but not written
	encode func(io.Writer, image.Image) error
}

var codecs = [...]codec{
	JPEG: {
		name:         "jpeg",
		ext:          "jpg",
		mime:         "image/jpeg",
		decode:       jpeg.Decode,
		decodeConfig: jpeg.DecodeConfig,
		encode: func(w io.Writer, m image.Image) error {
			return jpeg.Encode(w, m, &jpeg.Options{Quality: 90})
		},
	},
	PNG: {
		name:         "png",
		ext:          "png",
		mime:         "image/png",
		decode:       png.Decode,
		decodeConfig: png.DecodeConfig,
		encode: func(w io.Writer, m image.Image) error {
			enc := png.Encoder{CompressionLevel: png.BestSpeed}
			return enc.Encode(w, m)
		},
	},
	WEBP: {
		name:         "webp",
		ext:          "webp",
		mime:         "image/webp",
		decode:       webp.Decode,
		decodeConfig: webp.DecodeConfig,
	},
}

func (f Format) codec() (codec, bool) {
	if f <= FormatUnknown || int(f) >= len(codecs) {
		return codec{}, false
	}
	return codecs[f], true
}

func (f Format) String() string {
	if c, ok := f.codec(); ok {
		return c.name
	}
	return "unknown"
}

// Extension is the file extension without the leading dot.
func (f Format) Extension() string {
	c, _ := f.codec()
	return c.ext
}

func (f Format) MIMEType() string {
	c, ok := f.codec()
	if !ok {
		return "application/octet-stream"
	}
	return c.mime
}

// CanEncode reports whether derived artifacts can be written in f.
func (f Format) CanEncode() bool {
	c, ok := f.codec()
	return ok && c.encode != nil
}

// Classify detects the format from the magic header of data.
func Classify(data []byte) (Format, error) {
	if len(data) == 0 {
		return FormatUnknown, ErrWrongFormat
	}
	detected := mimetype.Detect(data)
	// Subtypes such as APNG are read by their parent's decoder.
	for m := detected; m != nil; m = m.Parent() {
		for f := JPEG; int(f) < len(codecs); f++ {
			if m.Is(codecs[f].mime) {
				return f, nil
			}
		}
	}
	return FormatUnknown, fmt.Errorf("%w: detected %s", ErrWrongFormat, detected.String())
}

// ParseFormat maps a configuration value such as "png" or "jpg" onto a
// Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WEBP, nil
	}
	return FormatUnknown, fmt.Errorf("unknown image format %q", name)
}
