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

package fwlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func emit(testLevel Level, format string, args ...any) {
	switch testLevel {
	case LevelDebug:
		if format == "" {
			Debug(args...)
		} else {
			Debugf(format, args...)
		}
	case LevelInfo:
		if format == "" {
			Info(args...)
		} else {
			Infof(format, args...)
		}
	case LevelWarn:
		if format == "" {
			Warn(args...)
		} else {
			Warnf(format, args...)
		}
	case LevelError:
		if format == "" {
			Error(args...)
		} else {
			Errorf(format, args...)
		}
	}
}

func decode(t *testing.T, buf *bytes.Buffer) []entry {
	t.Helper()
	var out []entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		out = append(out, e)
	}
	return out
}

func TestOutput(t *testing.T) {
	defer SetLevel(LevelInfo)
	defer SetOutput(os.Stderr)

	testCases := []struct {
		name        string
		format      string
		args        []any
		testLevel   Level
		loggerLevel Level
		wantLevel   string
		wantMsg     string
	}{
		{"info passes info", "%s %s", []any{"LevelInfo", "test"}, LevelInfo, LevelInfo, "INFO", "LevelInfo test"},
		{"info filtered by warn", "%s %s", []any{"LevelInfo", "test"}, LevelInfo, LevelWarn, "", ""},
		{"debug passes debug", "%s%s", []any{"LevelDebug", "Test"}, LevelDebug, LevelDebug, "DEBUG", "LevelDebugTest"},
		{"error passes info", "%s", []any{"LevelError test"}, LevelError, LevelInfo, "ERROR", "LevelError test"},
		{"warn passes warn", "%s", []any{"LevelWarn test"}, LevelWarn, LevelWarn, "WARN", "LevelWarn test"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			SetOutput(buf)
			SetLevel(tc.loggerLevel)

			emit(tc.testLevel, tc.format, tc.args...)
			emit(tc.testLevel, "", tc.wantMsg)

			got := decode(t, buf)
			if tc.wantLevel == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 2)
			for _, e := range got {
				assert.Equal(t, tc.wantLevel, e.Level)
				assert.Equal(t, tc.wantMsg, e.Msg)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"fatal", LevelFatal, false},
		{"verbose", LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantErr, err != nil)
		})
	}
}

// recorder captures calls instead of writing them, so Fatal can be
// exercised without exiting.
type recorder struct {
	lines []string
	level Level
}

func (r *recorder) add(lv Level, msg string) { r.lines = append(r.lines, lv.String()+": "+msg) }

func (r *recorder) Debugf(format string, v ...any) { r.add(LevelDebug, fmt.Sprintf(format, v...)) }
func (r *recorder) Infof(format string, v ...any)  { r.add(LevelInfo, fmt.Sprintf(format, v...)) }
func (r *recorder) Warnf(format string, v ...any)  { r.add(LevelWarn, fmt.Sprintf(format, v...)) }
func (r *recorder) Errorf(format string, v ...any) { r.add(LevelError, fmt.Sprintf(format, v...)) }
func (r *recorder) Fatalf(format string, v ...any) { r.add(LevelFatal, fmt.Sprintf(format, v...)) }
func (r *recorder) Debug(v ...any)                 { r.add(LevelDebug, fmt.Sprint(v...)) }
func (r *recorder) Info(v ...any)                  { r.add(LevelInfo, fmt.Sprint(v...)) }
func (r *recorder) Warn(v ...any)                  { r.add(LevelWarn, fmt.Sprint(v...)) }
func (r *recorder) Error(v ...any)                 { r.add(LevelError, fmt.Sprint(v...)) }
func (r *recorder) Fatal(v ...any)                 { r.add(LevelFatal, fmt.Sprint(v...)) }
func (r *recorder) SetLevel(lv Level)              { r.level = lv }
func (r *recorder) SetOutput(io.Writer)            {}

func TestSetLogger(t *testing.T) {
	prev := DefaultLogger()
	defer SetLogger(prev)

	rec := &recorder{}
	SetLogger(rec)
	assert.Same(t, rec, DefaultLogger())

	SetLevel(LevelError)
	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
	Fatal("f")
	Debugf("%d", 1)
	Infof("%d", 2)
	Warnf("%d", 3)
	Errorf("%d", 4)
	Fatalf("%d", 5)

	assert.Equal(t, LevelError, rec.level)
	assert.Equal(t, []string{
		"debug: d", "info: i", "warn: w", "error: e", "fatal: f",
		"debug: 1", "info: 2", "warn: 3", "error: 4", "fatal: 5",
	}, rec.lines)
}
