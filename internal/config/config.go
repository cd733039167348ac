// Package config loads process configuration from the environment, in the
// shape the admin tool and optional config-file loader (out of scope here)
// are expected to eventually feed.
package config

import (
	"os"
	"strconv"
	"time"
)

type HTTPConfig struct {
	Addr        string
	Realm       string
	MaxICSBytes int64
}

type DigestConfig struct {
	Realm         string
	NonceCap      int
	NonceEvict    int
	BusyTimeout   time.Duration
	BackoffFast   time.Duration
	BackoffFastN  int
	BackoffSlow   time.Duration
}

type StorageConfig struct {
	Type        string // sqlite | postgres
	DSN         string
	CreateOnNew bool
}

type Config struct {
	HTTP     HTTPConfig
	Digest   DigestConfig
	Storage  StorageConfig
	LogLevel string
	LogPath  string // read from LOG_PATH; logging.New does not use it and always writes to stdout
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func Load() (*Config, error) {
	realm := getenv("DIGEST_REALM", "kcaldavd")
	return &Config{
		HTTP: HTTPConfig{
			Addr:        getenv("HTTP_ADDR", ":8080"),
			Realm:       realm,
			MaxICSBytes: getenvInt64("HTTP_MAX_ICS_BYTES", 1<<20),
		},
		Digest: DigestConfig{
			Realm:        realm,
			NonceCap:     getenvInt("NONCE_CAP", 1000),
			NonceEvict:   getenvInt("NONCE_EVICT", 20),
			BusyTimeout:  time.Second,
			BackoffFast:  100 * time.Millisecond,
			BackoffFastN: 10,
			BackoffSlow:  400 * time.Millisecond,
		},
		Storage: StorageConfig{
			Type:        getenv("STORAGE_TYPE", "sqlite"),
			DSN:         getenv("STORAGE_DSN", "./data/kcaldavd.db"),
			CreateOnNew: getenv("STORAGE_CREATE", "true") == "true",
		},
		LogLevel: getenv("LOG_LEVEL", "info"),
		LogPath:  getenv("LOG_PATH", ""),
	}, nil
}
