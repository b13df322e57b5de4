package tesseract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/receiptsense/backend/internal/domain"
	"golang.org/x/time/rate"
)

var (
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reBoxNoise   = regexp.MustCompile(`^[_\-=|]{3,}$`)
)

// Config holds tesseract invocation settings
type Config struct {
	Binary        string        // binary name or absolute path; if empty -> "tesseract"
	Language      string        // default "eng"
	PSM           int           // page segmentation mode; 0 leaves tesseract's default
	TessdataDir   string        // optional --tessdata-dir
	Timeout       time.Duration // per-image limit; default 60s
	RatePerSecond float64       // invocations per second; default 2
	Burst         int           // default 4
}

// Client produces OCR lines by running the tesseract binary
type Client struct {
	cfg         Config
	runner      Runner
	rateLimiter *rate.Limiter
}

// NewClient creates a tesseract client with defaults applied
func NewClient(cfg Config) *Client {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 4
	}

	return &Client{
		cfg:         cfg,
		runner:      execRunner{},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
	}
}

// SetDebug enables logging of successful invocations
func (c *Client) SetDebug(debug bool) {
	if _, ok := c.runner.(execRunner); ok {
		c.runner = execRunner{debug: debug}
	}
}

// Name identifies the engine in health output
func (c *Client) Name() string {
	return "tesseract"
}

// Available reports whether the tesseract binary can be found
func (c *Client) Available() bool {
	_, err := exec.LookPath(c.cfg.Binary)
	return err == nil
}

// ProduceLines runs tesseract on the image and returns its non-blank text lines in reading order
func (c *Client) ProduceLines(ctx context.Context, image []byte) ([]string, error) {
	if len(image) == 0 {
		return nil, domain.ErrEmptyImage
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	tmp, err := os.CreateTemp("", "receiptsense-*.img")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	// tesseract <file> stdout -l <lang>
	out, errb, err := c.runner.Run(ctx, c.cfg.Binary, c.args(tmp.Name())...)
	if err != nil {
		return nil, fmt.Errorf("%w: tesseract: %v: %s", domain.ErrOCRFailure, err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	return SplitLines(string(out)), nil
}

func (c *Client) args(path string) []string {
	args := []string{path, "stdout", "-l", c.cfg.Language}
	if c.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(c.cfg.PSM))
	}
	if c.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", c.cfg.TessdataDir)
	}
	return args
}

// SplitLines normalizes raw tesseract output into OCR lines.
// Tabs and runs of spaces collapse to one space; blank lines and ruler lines are dropped.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = reTabs.ReplaceAllString(line, " ")
		line = reMultiSpace.ReplaceAllString(line, " ")
		line = strings.TrimSpace(line)
		if line == "" || reBoxNoise.MatchString(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
