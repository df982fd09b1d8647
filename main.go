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

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/fawa-io/avatar/pkg/config"
	"github.com/fawa-io/avatar/pkg/cors"
	"github.com/fawa-io/avatar/pkg/fwlog"
	"github.com/fawa-io/avatar/pkg/imaging"
	"github.com/fawa-io/avatar/pkg/storage"
	"github.com/fawa-io/avatar/service/image"
)

func main() {
	if err := config.InitConfig(); err != nil {
		fwlog.Fatalf("Failed to initialize configuration: %v", err)
	}
	cfg := config.Get()

	level, err := fwlog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fwlog.Warnf("Invalid log level %q, using %s", cfg.LogLevel, level)
	}
	fwlog.SetLevel(level)

	store := storage.NewFileStore(afero.NewOsFs(), cfg.Image.Dir)
	if err := store.EnsureRoot(); err != nil {
		fwlog.Fatalf("Failed to create image directory %s: %v", cfg.Image.Dir, err)
	}

	opts, err := cfg.Image.Options()
	if err != nil {
		fwlog.Fatalf("Invalid image configuration: %v", err)
	}
	deriver, err := imaging.NewDeriver(store.Root(), opts, store)
	if err != nil {
		fwlog.Fatalf("Invalid image configuration: %v", err)
	}

	svcOpts := []image.Option{image.WithDefaultSize(cfg.Image.DefaultSize)}

	var index storage.Index
	if cfg.Redis.Addr != "" {
		index, err = storage.NewDragonflyIndex(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			fwlog.Fatalf("Failed to connect to Dragonfly: %v", err)
		}
		svcOpts = append(svcOpts, image.WithIndex(index))
		fwlog.Infof("Recording uploads in Dragonfly at %s", cfg.Redis.Addr)
	}

	if cfg.Minio.Endpoint != "" {
		archive, err := storage.NewMinioArchive(context.Background(), storage.MinioOptions{
			Endpoint:        cfg.Minio.Endpoint,
			AccessKeyID:     cfg.Minio.AccessKeyID,
			SecretAccessKey: cfg.Minio.SecretAccessKey,
			Bucket:          cfg.Minio.Bucket,
			UseSSL:          cfg.Minio.UseSSL,
		})
		if err != nil {
			fwlog.Fatalf("Failed to connect to MinIO: %v", err)
		}
		svcOpts = append(svcOpts, image.WithArchive(archive))
		fwlog.Infof("Archiving originals to MinIO bucket %s", cfg.Minio.Bucket)
	}

	svc := image.NewService(deriver, store, svcOpts...)

	// Register all handlers
	mux := http.NewServeMux()
	image.NewHandler(svc, cfg.Image.MaxUploadBytes).Register(mux)
	mux.Handle(image.NewAdminServiceHandler(image.NewAdminHandler(svc)))

	avatarSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           cors.NewCORS().Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fwlog.Info("Shutting down server...")

		// Set timeout for HTTP server shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := avatarSrv.Shutdown(ctx); err != nil {
			fwlog.Errorf("Server shutdown error: %v", err)
		}
		if index != nil {
			if err := index.Close(); err != nil {
				fwlog.Errorf("Error closing Dragonfly index: %v", err)
			}
		}

		fwlog.Info("Server shutdown complete")
		os.Exit(0)
	}()

	fwlog.Infof("Server starting on %v, serving images from %s", cfg.Addr, store.Root())

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		err = avatarSrv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	} else {
		fwlog.Warn("No TLS certificate configured, serving plain HTTP")
		err = avatarSrv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		fwlog.Fatalf("Failed to start server: %v", err)
	}
}
