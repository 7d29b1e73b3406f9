// Package minio implements audio storage on S3-compatible object storage,
// for deployments where generated audio must outlive the host.
package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/qvox/qvox-server/internal/audio"
	"github.com/qvox/qvox-server/internal/config"
	"github.com/qvox/qvox-server/internal/service/logger"
	"github.com/qvox/qvox-server/internal/storage"
	"github.com/qvox/qvox-server/internal/telemetry"
	"github.com/qvox/qvox-server/model"
)

const (
	refPrefix = "references/"
	genPrefix = "generated/"
)

// MinioClient wraps the MinIO SDK client.
type MinioClient struct {
	client    *minio.Client
	bucket    string
	transport *http.Transport
}

// NewMinioClient initializes and returns a MinIO-backed storage.
func NewMinioClient(cfg *config.MinioConfig) (storage.Storage, error) {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   50,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}

	cli, err := minio.New(cfg.URL, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.ACCESS_KEY, cfg.SECRET_KEY, ""),
		Secure:    cfg.USE_SSL,
		Transport: transport,
	})
	if err != nil {
		return nil, err
	}

	return &MinioClient{client: cli, bucket: cfg.AUDIO_BUCKET, transport: transport}, nil
}

func (m *MinioClient) SaveReference(ctx context.Context, data []byte, originalName, refText string) (model.ReferenceMeta, error) {
	id := uuid.NewString()
	meta := model.ReferenceMeta{
		ID:           id,
		Filename:     id + ".wav",
		OriginalName: originalName,
		RefText:      refText,
		CreatedAt:    fmt.Sprintf("%d", time.Now().Unix()),
	}

	if err := m.upload(ctx, refPrefix+id+".wav", data); err != nil {
		return model.ReferenceMeta{}, err
	}
	if err := m.uploadMeta(ctx, refPrefix+id+".json", meta); err != nil {
		return model.ReferenceMeta{}, err
	}
	return meta, nil
}

func (m *MinioClient) ListReferences(ctx context.Context) ([]model.ReferenceMeta, error) {
	var out []model.ReferenceMeta
	err := m.eachMeta(ctx, refPrefix, func(data []byte) {
		var meta model.ReferenceMeta
		if json.Unmarshal(data, &meta) == nil {
			out = append(out, meta)
		}
	})
	return out, err
}

func (m *MinioClient) GetReference(ctx context.Context, id string) (model.ReferenceMeta, error) {
	var meta model.ReferenceMeta
	data, err := m.download(ctx, refPrefix+id+".json")
	if err != nil {
		return model.ReferenceMeta{}, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return model.ReferenceMeta{}, fmt.Errorf("decoding metadata for %s: %w", id, err)
	}
	return meta, nil
}

func (m *MinioClient) GetReferenceAudio(ctx context.Context, id string) ([]byte, error) {
	return m.download(ctx, refPrefix+id+".wav")
}

func (m *MinioClient) DeleteReference(ctx context.Context, id string) error {
	return m.deletePair(ctx, refPrefix, id)
}

func (m *MinioClient) RenameReference(ctx context.Context, id, name string) (model.ReferenceMeta, error) {
	meta, err := m.GetReference(ctx, id)
	if err != nil {
		return model.ReferenceMeta{}, err
	}
	meta.Name = name
	if err := m.uploadMeta(ctx, refPrefix+id+".json", meta); err != nil {
		return model.ReferenceMeta{}, err
	}
	return meta, nil
}

func (m *MinioClient) SaveGenerated(ctx context.Context, taskID string, clip audio.Clip, meta model.GeneratedMeta) (string, error) {
	data, err := audio.EncodeWAV(clip)
	if err != nil {
		return "", err
	}

	filename := taskID + ".wav"
	if err := m.upload(ctx, genPrefix+filename, data); err != nil {
		return "", err
	}
	if err := m.uploadMeta(ctx, genPrefix+taskID+".json", meta); err != nil {
		return "", err
	}
	return filename, nil
}

func (m *MinioClient) ListGenerated(ctx context.Context) ([]model.GeneratedMeta, error) {
	var out []model.GeneratedMeta
	err := m.eachMeta(ctx, genPrefix, func(data []byte) {
		var meta model.GeneratedMeta
		if json.Unmarshal(data, &meta) == nil {
			out = append(out, meta)
		}
	})
	return out, err
}

func (m *MinioClient) GetGeneratedAudio(ctx context.Context, taskID string) ([]byte, error) {
	return m.download(ctx, genPrefix+taskID+".wav")
}

func (m *MinioClient) DeleteGenerated(ctx context.Context, id string) error {
	return m.deletePair(ctx, genPrefix, id)
}

func (m *MinioClient) ShutDown(ctx context.Context) {
	m.transport.CloseIdleConnections()
}

func (m *MinioClient) upload(ctx context.Context, objectPath string, data []byte) error {
	tracer := telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "MinIO/Upload")
	defer span.End()

	_, err := m.client.PutObject(ctx, m.bucket, objectPath, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return fmt.Errorf("uploading %s: %w", objectPath, err)
	}
	return nil
}

func (m *MinioClient) uploadMeta(ctx context.Context, objectPath string, meta any) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	return m.upload(ctx, objectPath, data)
}

func (m *MinioClient) download(ctx context.Context, objectPath string) ([]byte, error) {
	tracer := telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "MinIO/Download")
	defer span.End()

	object, err := m.client.GetObject(ctx, m.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, fmt.Errorf("fetching %s: %w", objectPath, err)
	}
	defer object.Close()

	if _, err := object.Stat(); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", objectPath, storage.ErrNotFound)
		}
		telemetry.RecordSpanError(span, err)
		return nil, fmt.Errorf("fetching %s: %w", objectPath, err)
	}

	data, err := io.ReadAll(object)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, fmt.Errorf("reading %s: %w", objectPath, err)
	}
	return data, nil
}

func (m *MinioClient) eachMeta(ctx context.Context, prefix string, visit func(data []byte)) error {
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return fmt.Errorf("listing %s: %w", prefix, object.Err)
		}
		if !strings.HasSuffix(object.Key, ".json") {
			continue
		}
		data, err := m.download(ctx, object.Key)
		if err != nil {
			logger.Log.Warn().Err(err).Str("key", object.Key).Msg("skipping unreadable metadata")
			continue
		}
		visit(data)
	}
	return nil
}

func (m *MinioClient) deletePair(ctx context.Context, prefix, id string) error {
	// Probe first so a delete of a missing recording reports not-found.
	if _, err := m.download(ctx, prefix+id+".json"); err != nil {
		return err
	}
	for _, key := range []string{prefix + id + ".wav", prefix + id + ".json"} {
		if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}
	return nil
}
