package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/receiptsense/backend/internal/domain"
)

// DocumentServiceConfig holds configuration for the document service
type DocumentServiceConfig struct {
	CacheTTL           time.Duration
	EnableDebugLogging bool
}

// DocumentService runs uploaded images through OCR and the field extractor
type DocumentService struct {
	producer           domain.LineProducer
	extractor          *Extractor
	cache              domain.CacheRepository
	cacheTTL           time.Duration
	enableDebugLogging bool
}

// NewDocumentService creates a new document service with dependencies.
// producer and cache may be nil: images are then rejected, or never cached.
func NewDocumentService(
	producer domain.LineProducer,
	extractor *Extractor,
	cache domain.CacheRepository,
	config DocumentServiceConfig,
) *DocumentService {
	if extractor == nil {
		extractor = NewExtractor(ExtractorConfig{})
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	return &DocumentService{
		producer:           producer,
		extractor:          extractor,
		cache:              cache,
		cacheTTL:           cacheTTL,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// ProcessImage extracts a structured record from an image.
// Flow: check cache -> OCR -> extract -> cache -> return
func (s *DocumentService) ProcessImage(ctx context.Context, image []byte) (*domain.ProcessedDocument, error) {
	if len(image) == 0 {
		return nil, domain.ErrEmptyImage
	}
	if s.producer == nil {
		return nil, domain.ErrOCRUnavailable
	}

	cacheKey := generateCacheKey(image)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		cached.Source = "cache"
		return cached, nil
	}

	start := time.Now()

	lines, err := s.producer.ProduceLines(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOCRFailure, err)
	}
	if lines == nil {
		lines = []string{}
	}

	record, err := s.extractor.Extract(lines)
	if err != nil {
		return nil, err
	}

	doc := &domain.ProcessedDocument{
		Record:          record,
		ExtractedText:   record.RawOCRText,
		ProcessedTimeMs: roundMillis(time.Since(start)),
		Source:          "ocr",
	}

	if s.enableDebugLogging {
		log.Printf("[EXTRACT] engine=%s lines=%d items=%d type=%s in %.2fms",
			s.producer.Name(), len(lines), len(record.LineItems), record.DocumentType, doc.ProcessedTimeMs)
	}

	if err := s.setInCache(ctx, cacheKey, doc); err != nil {
		log.Printf("[CACHE] Failed to store %s: %v", cacheKey, err)
	}

	return doc, nil
}

// ExtractLines runs the field extractor on lines that were recognized elsewhere
func (s *DocumentService) ExtractLines(ctx context.Context, lines []string) (*domain.StructuredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.extractor.Extract(lines)
}

// OCREngine returns the configured OCR engine name, or "none"
func (s *DocumentService) OCREngine() string {
	if s.producer == nil {
		return "none"
	}
	return s.producer.Name()
}

// OCRReady reports whether images can be processed
func (s *DocumentService) OCRReady() bool {
	return s.producer != nil
}

// generateCacheKey derives a key from the image content.
// Format: "record:{sha256 hex}"
func generateCacheKey(image []byte) string {
	sum := sha256.Sum256(image)
	return "record:" + hex.EncodeToString(sum[:])
}

// roundMillis converts a duration to milliseconds rounded to two decimals
func roundMillis(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}

// getFromCache retrieves a processed document from cache
func (s *DocumentService) getFromCache(ctx context.Context, key string) (*domain.ProcessedDocument, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var doc domain.ProcessedDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.Record == nil {
		// Unreadable entries are treated as misses and overwritten
		return nil, domain.ErrCacheMiss
	}

	return &doc, nil
}

// setInCache stores a processed document in cache
func (s *DocumentService) setInCache(ctx context.Context, key string, doc *domain.ProcessedDocument) error {
	if s.cache == nil {
		return nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}
