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
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color/palette"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RIFF/WEBP container header of a 1x1 lossless image.
var tinyWebP = []byte("RIFF\x1a\x00\x00\x00WEBPVP8L\x0d\x00\x00\x00\x2f\x00\x00\x00\x10\x07\x10\x11\x11\x88\x88\xfe\x07\x00")

func gifBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 4, 4), palette.Plan9), nil))
	return buf.Bytes()
}

// withACTL inserts a single-frame animation control chunk after IHDR,
// turning a PNG into an APNG that png.Decode still reads.
func withACTL(t *testing.T, pngData []byte) []byte {
	t.Helper()
	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	require.Greater(t, len(pngData), ihdrEnd)

	body := []byte("acTL\x00\x00\x00\x01\x00\x00\x00\x00")
	chunk := binary.BigEndian.AppendUint32(nil, uint32(len(body)-4))
	chunk = append(chunk, body...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(body))

	out := append([]byte{}, pngData[:ihdrEnd]...)
	out = append(out, chunk...)
	return append(out, pngData[ihdrEnd:]...)
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name    string
		data    []byte
		want    Format
		wantErr bool
	}{
		{name: "jpeg", data: encodeJPEG(t, solid(8, 8, green)), want: JPEG},
		{name: "png", data: encodePNG(t, solid(8, 8, green)), want: PNG},
		{name: "webp", data: tinyWebP, want: WEBP},
		{name: "apng is read as png", data: withACTL(t, encodePNG(t, solid(20, 20, green))), want: PNG},
		{name: "gif is not supported", data: gifBytes(t), wantErr: true},
		{name: "text", data: []byte("definitely not an image"), wantErr: true},
		{name: "empty", data: nil, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Classify(tc.data)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrWrongFormat)
				assert.Equal(t, FormatUnknown, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatTable(t *testing.T) {
	testCases := []struct {
		format    Format
		ext       string
		mime      string
		canEncode bool
	}{
		{JPEG, "jpg", "image/jpeg", true},
		{PNG, "png", "image/png", true},
		{WEBP, "webp", "image/webp", false},
		{FormatUnknown, "", "application/octet-stream", false},
	}

	for _, tc := range testCases {
		t.Run(tc.format.String(), func(t *testing.T) {
			assert.Equal(t, tc.ext, tc.format.Extension())
			assert.Equal(t, tc.mime, tc.format.MIMEType())
			assert.Equal(t, tc.canEncode, tc.format.CanEncode())
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"jpg": JPEG, "JPEG": JPEG, " png ": PNG, "webp": WEBP} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("gif")
	assert.Error(t, err)
}
