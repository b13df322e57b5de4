package domain

import "errors"

var (
	// ErrInvalidInput is returned when the input cannot be interpreted as a sequence of text lines
	ErrInvalidInput = errors.New("invalid input")

	// ErrOCRUnavailable is returned when no OCR engine is configured or ready
	ErrOCRUnavailable = errors.New("OCR engine not available")

	// ErrOCRFailure is returned when the OCR engine ran but could not read the image
	ErrOCRFailure = errors.New("OCR processing failed")

	// ErrEmptyImage is returned when an upload carries no bytes
	ErrEmptyImage = errors.New("empty image")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
