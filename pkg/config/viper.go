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
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fawa-io/avatar/pkg/fwlog"
)

type Config struct {
	Addr     string `mapstructure:"addr"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	LogLevel string `mapstructure:"logLevel"`

	Image ImageConfig `mapstructure:"image"`
	Redis RedisConfig `mapstructure:"redis"`
	Minio MinioConfig `mapstructure:"minio"`
}

// ImageConfig is read once at startup. Changing it requires a restart.
type ImageConfig struct {
	Dir            string   `mapstructure:"dir"`
	Sizes          []uint32 `mapstructure:"sizes"`
	DefaultSize    uint32   `mapstructure:"defaultSize"`
	MaxResolution  int      `mapstructure:"maxResolution"`
	Output         string   `mapstructure:"output"`
	MaxUploadBytes int64    `mapstructure:"maxUploadBytes"`
}

// RedisConfig points at the Dragonfly/Redis instance holding upload
// metadata. An empty Addr disables the index.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MinioConfig configures the archive for original uploads. An empty
// Endpoint disables it.
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyID"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	Bucket          string `mapstructure:"bucket"`
	UseSSL          bool   `mapstructure:"useSSL"`
}

var (
	once sync.Once

	mu sync.RWMutex

	config Config
)

func InitConfig() error {
	var initErr error
	once.Do(func() {
		initErr = LoadAndWatch()
	})
	return initErr
}

func Get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("certFile", "")
	v.SetDefault("keyFile", "")
	v.SetDefault("logLevel", "info")

	v.SetDefault("image.dir", "./images")
	v.SetDefault("image.sizes", []uint32{64, 128, 256, 512})
	v.SetDefault("image.defaultSize", 256)
	v.SetDefault("image.maxResolution", 10000)
	v.SetDefault("image.output", "png")
	v.SetDefault("image.maxUploadBytes", 10<<20)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.accessKeyID", "")
	v.SetDefault("minio.secretAccessKey", "")
	v.SetDefault("minio.bucket", "")
	v.SetDefault("minio.useSSL", false)
}

// load binds flags, environment and the optional config file into v and
// decodes the result.
func load(v *viper.Viper, fs *pflag.FlagSet, args []string) (Config, error) {
	fs.String("config", "", "Path to a config file; overrides the search path.")
	fs.String("addr", "", "HTTP service address (e.g., '127.0.0.1:9090')")
	fs.String("certFile", "", "Path to the TLS certificate file.")
	fs.String("keyFile", "", "Path to the TLS private key file.")
	fs.String("logLevel", "", "Log level: debug, info, warn, error.")
	fs.String("image.dir", "", "Directory holding original and derived images.")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("failed to parse flags: %w", err)
	}

	setDefaults(v)

	// Only flags set explicitly override the file, so an empty flag does
	// not shadow a configured value.
	var bindErr error
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(f.Name, f)
	})
	if bindErr != nil {
		return Config{}, fmt.Errorf("failed to bind pflags: %w", bindErr)
	}

	v.SetEnvPrefix("fawa")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/fawa/")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fwlog.Infof("Config file not found, using defaults.")
		} else {
			return Config{}, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("the initial configuration cannot be decoded into the struct: %w", err)
	}
	return cfg, nil
}

func LoadAndWatch() error {
	v := viper.GetViper()
	cfg, err := load(v, pflag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}

	mu.Lock()
	config = cfg
	mu.Unlock()

	if v.ConfigFileUsed() == "" {
		return nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		fwlog.Infof("Config file %s changed, reloading...", e.Name)

		var next Config
		if err := v.Unmarshal(&next); err != nil {
			fwlog.Errorf("Error while reloading config: %v", err)
			return
		}

		mu.Lock()
		defer mu.Unlock()

		// Image settings stay as they were at startup; the running
		// pipeline was built from them.
		next.Image = config.Image
		config = next

		newLogLevel, err := fwlog.ParseLevel(config.LogLevel)
		if err != nil {
			fwlog.Warnf("New log level in config is invalid: %v. Keeping previous level.", err)
			return
		}
		fwlog.SetLevel(newLogLevel)
		fwlog.Infof("Log level reloaded successfully to: %s", config.LogLevel)
	})
	v.WatchConfig()

	return nil
}
