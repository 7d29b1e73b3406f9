package component

import (
	"github.com/qvox/qvox-server/internal/cache"
	"github.com/qvox/qvox-server/internal/cache/freecache"
	"github.com/qvox/qvox-server/internal/config"
	"github.com/qvox/qvox-server/internal/engine"
	"github.com/qvox/qvox-server/internal/storage"
	"github.com/qvox/qvox-server/internal/storage/fs"
	miniostorage "github.com/qvox/qvox-server/internal/storage/minio"
	"github.com/qvox/qvox-server/internal/synth/dev"
)

func GetCache(cacheType string) (cache.Cache, error) {
	switch cacheType {
	default:
		cfg, err := config.GetFreeCacheConfig()
		if err != nil {
			return nil, err
		}
		return freecache.NewFreeCache(cfg.SIZE_BYTES, cfg.TTL), nil
	}
}

func GetStorage(storageType string) (storage.Storage, error) {
	switch storageType {
	case "minio":
		cfg, err := config.GetMinioConfig()
		if err != nil {
			return nil, err
		}
		return miniostorage.NewMinioClient(cfg)
	default:
		cfg, err := config.GetFileStorageConfig()
		if err != nil {
			return nil, err
		}
		return fs.NewFileStorage(cfg.DATA_DIR)
	}
}

// GetSynthesizer picks the compute backend. Only the development tone
// backend is compiled into this repo; real model runtimes plug in through
// engine.Synthesizer.
func GetSynthesizer(device string) (engine.Synthesizer, error) {
	switch device {
	default:
		return dev.NewSynthesizer(), nil
	}
}
