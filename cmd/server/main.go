package main

import (
	"fmt"
	"log"
	"os"

	"github.com/receiptsense/backend/config"
	httpDelivery "github.com/receiptsense/backend/internal/delivery/http"
	"github.com/receiptsense/backend/internal/domain"
	"github.com/receiptsense/backend/internal/infrastructure/azure"
	"github.com/receiptsense/backend/internal/infrastructure/cache"
	"github.com/receiptsense/backend/internal/infrastructure/tesseract"
	"github.com/receiptsense/backend/internal/usecase"
)

func main() {
	// Load configuration (.env first, then config file and RECEIPTSENSE_* variables)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debug := cfg.Server.Environment == "development"

	log.Printf("Starting ReceiptSense Backend v%s", httpDelivery.Version)
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("OCR Engine: %s", cfg.OCR.Engine)
	log.Printf("Cache Type: %s", cfg.Cache.Type)

	// Initialize infrastructure dependencies
	producer := newLineProducer(cfg, debug)

	recordCache, closeCache, err := newCache(cfg)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer closeCache()
	log.Printf("Cache TTL: %s", cfg.Cache.TTL)

	// Initialize usecase layer
	extractor := usecase.NewExtractor(usecase.ExtractorConfig{
		MerchantLines: cfg.Extraction.MerchantLines,
		HeaderLines:   cfg.Extraction.HeaderLines,
		FooterLines:   cfg.Extraction.FooterLines,
	})

	documentService := usecase.NewDocumentService(
		producer,
		extractor,
		recordCache,
		usecase.DocumentServiceConfig{
			CacheTTL:           cfg.Cache.TTL,
			EnableDebugLogging: debug,
		},
	)

	log.Printf("Extraction: merchant=%d header=%d footer=%d lines",
		cfg.Extraction.MerchantLines, cfg.Extraction.HeaderLines, cfg.Extraction.FooterLines)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(documentService, cfg.Server.MaxUploadMB)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newLineProducer builds the configured OCR engine, or nil when images cannot be processed
func newLineProducer(cfg *config.Config, debug bool) domain.LineProducer {
	switch cfg.OCR.Engine {
	case "tesseract":
		client := tesseract.NewClient(tesseract.Config{
			Binary:        cfg.OCR.Tesseract.Binary,
			Language:      cfg.OCR.Tesseract.Lang,
			PSM:           cfg.OCR.Tesseract.PSM,
			TessdataDir:   cfg.OCR.Tesseract.TessdataDir,
			Timeout:       cfg.OCR.Timeout,
			RatePerSecond: cfg.OCR.RatePerSecond,
			Burst:         cfg.OCR.Burst,
		})
		client.SetDebug(debug)
		if !client.Available() {
			log.Printf("WARNING: tesseract binary %q not found - image uploads will fail!", cfg.OCR.Tesseract.Binary)
			return nil
		}
		return client

	case "azure":
		client := azure.NewClient(cfg.OCR.Azure.Endpoint, cfg.OCR.Azure.APIKey, cfg.OCR.RatePerSecond, cfg.OCR.Burst)
		client.SetDebug(debug)
		log.Printf("Azure Computer Vision configured: %s (key: %s...)", cfg.OCR.Azure.Endpoint, keyPrefix(cfg.OCR.Azure.APIKey))
		return client
	}

	log.Printf("OCR disabled - only line extraction endpoints are served")
	return nil
}

// newCache builds the configured record cache and its cleanup function
func newCache(cfg *config.Config) (domain.CacheRepository, func(), error) {
	switch cfg.Cache.Type {
	case "memory":
		memoryCache := cache.NewMemoryCache(0)
		return memoryCache, func() { memoryCache.Close() }, nil

	case "bolt":
		boltCache, err := cache.NewBoltCache(cfg.Cache.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Bolt cache at %s", cfg.Cache.BoltPath)
		return boltCache, func() { boltCache.Close() }, nil
	}

	return nil, func() {}, nil
}

func keyPrefix(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
