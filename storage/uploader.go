package storage

import (
	"context"
	"io"
)

// UploadResult — итог загрузки объекта в хранилище.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader — файловое хранилище лиги (фото залов). Key — путь
// объекта внутри бакета; публичный URL собирается поверх базового URL
// бакета.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}
