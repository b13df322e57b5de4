package azure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/receiptsense/backend/internal/domain"
	"golang.org/x/time/rate"
)

const maxAttempts = 3

// recognizer is the slice of the Computer Vision client we depend on
type recognizer interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, image io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// Client produces OCR lines with the Azure Computer Vision OCR API
type Client struct {
	vision      recognizer
	endpoint    string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new Azure OCR client
func NewClient(endpoint, apiKey string, ratePerSecond float64, burst int) *Client {
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}
	if burst <= 0 {
		burst = 4
	}

	vision := computervision.New(endpoint)
	vision.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)

	return &Client{
		vision:      vision,
		endpoint:    endpoint,
		rateLimiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// SetDebug enables verbose logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Name identifies the engine in health output
func (c *Client) Name() string {
	return "azure"
}

// ProduceLines sends the image to Azure and returns the recognized lines in reading order
func (c *Client) ProduceLines(ctx context.Context, image []byte) ([]string, error) {
	if len(image) == 0 {
		return nil, domain.ErrEmptyImage
	}

	// Retry up to 3 times for transient failures
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		result, err := c.vision.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(image)), computervision.OcrLanguages(computervision.En))
		if err == nil {
			lines := LinesFromResult(result)
			if c.debug {
				log.Printf("[AZURE] Recognized %d lines (attempt %d)", len(lines), attempt)
			}
			return lines, nil
		}

		log.Printf("[AZURE] OCR request error (attempt %d): %v", attempt, err)
		lastErr = err
		if !retryable(err) || attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
	}

	return nil, fmt.Errorf("%w: azure: %v", domain.ErrOCRFailure, lastErr)
}

// retryable reports whether a failed request is worth repeating.
// Client errors other than throttling are permanent.
func retryable(err error) bool {
	var detailed autorest.DetailedError
	if errors.As(err, &detailed) {
		if code, ok := detailed.StatusCode.(int); ok {
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		}
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// exponentialBackoff returns the wait before the next attempt: 500ms, 1s, 2s...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// LinesFromResult flattens regions into lines, joining each line's words with single spaces
func LinesFromResult(result computervision.OcrResult) []string {
	lines := []string{}
	if result.Regions == nil {
		return lines
	}

	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil && *word.Text != "" {
					words = append(words, *word.Text)
				}
			}
			if text := strings.TrimSpace(strings.Join(words, " ")); text != "" {
				lines = append(lines, text)
			}
		}
	}
	return lines
}
