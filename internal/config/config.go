package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	SERVICE_NAME string
	HTTP_ADDR    string
	TRACE_URL    string
	CACHE_TYPE   string
	STORAGE_TYPE string
}

type EngineConfig struct {
	MODELS     []string
	DEVICE     string
	MODEL_SIZE string
}

type FileStorageConfig struct {
	DATA_DIR string
}

type MinioConfig struct {
	URL          string
	AUDIO_BUCKET string
	ACCESS_KEY   string
	SECRET_KEY   string
	USE_SSL      bool
}

type FreeCacheConfig struct {
	SIZE_BYTES int
	TTL        int
}

type WebConfig struct {
	GEN_QUEUE_SIZE   int
	GEN_MAX_INFLIGHT int
}

func env(key string) string {
	return os.Getenv(key)
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntDefault(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1, fmt.Errorf("error initializing config with key: %s, err: %v", key, err)
	}
	return n, nil
}

func GetConfig() (*Config, error) {
	sn := envDefault("SERVICE_NAME", "qvox_server")
	ct := envDefault("CACHE_TYPE", "freecache")
	st := envDefault("STORAGE_TYPE", "fs")
	return &Config{
		SERVICE_NAME: sn,
		HTTP_ADDR:    envDefault("HTTP_ADDR", ":8080"),
		TRACE_URL:    env("TRACE_URL"),
		CACHE_TYPE:   ct,
		STORAGE_TYPE: st,
	}, nil
}

func GetEngineConfig() (*EngineConfig, error) {
	size := envDefault("QVOX_MODEL_SIZE", "1.7B")

	var models []string
	for _, m := range strings.Split(envDefault("QVOX_MODELS", "base"), ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("KEY: QVOX_MODELS is empty")
	}

	return &EngineConfig{
		MODELS:     models,
		DEVICE:     envDefault("QVOX_DEVICE", "auto"),
		MODEL_SIZE: size,
	}, nil
}

func GetFileStorageConfig() (*FileStorageConfig, error) {
	dir := env("QVOX_DATA_DIR")
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("KEY: QVOX_DATA_DIR is empty and no user cache dir: %v", err)
		}
		dir = filepath.Join(base, "qvox")
	}
	return &FileStorageConfig{DATA_DIR: dir}, nil
}

func GetMinioConfig() (*MinioConfig, error) {
	url := env("MINIO_ENDPOINT")
	if url == "" {
		return nil, fmt.Errorf("KEY: MINIO_ENDPOINT is empty")
	}

	bucket := env("MINIO_AUDIO_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("KEY: MINIO_AUDIO_BUCKET is empty")
	}

	ssl := env("MINIO_USE_SSL")
	if ssl != "true" && ssl != "false" {
		return nil, fmt.Errorf("KEY: MINIO_USE_SSL is invalid")
	}

	ak := env("MINIO_ACCESS_KEY")
	if ak == "" {
		return nil, fmt.Errorf("KEY: MINIO_ACCESS_KEY is empty")
	}

	sk := env("MINIO_SECRET_KEY")
	if sk == "" {
		return nil, fmt.Errorf("KEY: MINIO_SECRET_KEY is empty")
	}

	return &MinioConfig{
		URL:          url,
		AUDIO_BUCKET: bucket,
		USE_SSL:      ssl == "true",
		ACCESS_KEY:   ak,
		SECRET_KEY:   sk,
	}, nil
}

func GetFreeCacheConfig() (*FreeCacheConfig, error) {
	ttl, err := envIntDefault("FREECACHE_TTL", 300)
	if err != nil {
		return nil, err
	}
	size, err := envIntDefault("FREECACHE_SIZE", 32*1024*1024)
	if err != nil {
		return nil, err
	}
	return &FreeCacheConfig{TTL: ttl, SIZE_BYTES: size}, nil
}

func GetWebConfig() (*WebConfig, error) {
	queueSize, err := envIntDefault("GEN_QUEUE_SIZE", 64)
	if err != nil {
		return nil, err
	}
	maxInflight, err := envIntDefault("GEN_MAX_INFLIGHT", 4)
	if err != nil {
		return nil, err
	}
	return &WebConfig{GEN_QUEUE_SIZE: queueSize, GEN_MAX_INFLIGHT: maxInflight}, nil
}
