package domain

import (
	"context"
	"time"
)

// LineProducer turns an image into OCR text lines in top-to-bottom reading order.
// Implementations are built once by the host process and shared by reference.
type LineProducer interface {
	Name() string
	ProduceLines(ctx context.Context, image []byte) ([]string, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
