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

// Command client uploads an image to a running avatar server and prints
// what the server stored for it.
package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/fawa-io/avatar/pkg/fwlog"
	"github.com/fawa-io/avatar/service/image"
)

func main() {
	server := pflag.String("server", "http://localhost:8080", "Base URL of the avatar server.")
	key := pflag.Uint32("key", 0, "Image key.")
	file := pflag.String("file", "", "Image to upload before describing the key.")
	purge := pflag.Bool("purge", false, "Delete every stored image for the key.")
	pflag.Parse()

	base := strings.TrimRight(*server, "/")
	httpClient := &http.Client{Timeout: 30 * time.Second}
	ctx := context.Background()

	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			fwlog.Fatalf("Failed to read %s: %v", *file, err)
		}
		url := fmt.Sprintf("%s/image/%d", base, *key)
		resp, err := httpClient.Post(url, "application/octet-stream", bytes.NewReader(data))
		if err != nil {
			fwlog.Fatalf("Upload failed: %v", err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			fwlog.Fatalf("Upload rejected: %s", resp.Status)
		}
		fwlog.Infof("Uploaded %s as key %d", *file, *key)
	}

	admin := image.NewAdminClient(httpClient, base)
	if *purge {
		if err := admin.Purge(ctx, *key); err != nil {
			fwlog.Fatalf("Purge failed: %v", err)
		}
		fwlog.Infof("Purged key %d", *key)
	}

	desc, err := admin.Describe(ctx, *key)
	if err != nil {
		fwlog.Fatalf("Describe failed: %v", err)
	}
	out, err := protojson.MarshalOptions{Multiline: true}.Marshal(desc)
	if err != nil {
		fwlog.Fatalf("Failed to render description: %v", err)
	}
	fmt.Println(string(out))
}
