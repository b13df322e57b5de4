// Command extract runs the receipt field extractor over OCR text files.
//
// Inputs ending in .json must hold {"lines": [...]}; anything else is read as
// plain text, one OCR line per line. With no arguments, or "-", stdin is read.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/receiptsense/backend/internal/domain"
	"github.com/receiptsense/backend/internal/infrastructure/export"
	"github.com/receiptsense/backend/internal/infrastructure/payload"
	"github.com/receiptsense/backend/internal/usecase"
	"golang.org/x/sync/errgroup"
)

const stdinName = "-"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	format      string
	outDir      string
	concurrency int
	extractor   usecase.ExtractorConfig
}

// result is one extracted input, kept in argument order
type result struct {
	name   string
	record *domain.StructuredRecord
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := ff.NewFlagSet("extract")
	var (
		format        = fs.StringLong("format", "json", "Output format: 'json' or 'xlsx'")
		outDir        = fs.StringLong("out", ".", "Output directory for xlsx workbooks")
		concurrency   = fs.IntLong("concurrency", 4, "Number of inputs extracted in parallel")
		merchantLines = fs.IntLong("merchant-lines", usecase.DefaultMerchantLines, "Leading lines searched for the merchant name")
		headerLines   = fs.IntLong("header-lines", usecase.DefaultHeaderLines, "Leading lines never read as line items")
		footerLines   = fs.IntLong("footer-lines", usecase.DefaultFooterLines, "Trailing lines never read as line items")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("RECEIPTSENSE")); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fmt.Fprintf(stdout, "%s\n", ffhelp.Flags(fs))
			return nil
		}
		return fmt.Errorf("%w\n%s", err, ffhelp.Flags(fs))
	}

	opts := options{
		format:      strings.ToLower(*format),
		outDir:      *outDir,
		concurrency: *concurrency,
		extractor: usecase.ExtractorConfig{
			MerchantLines: *merchantLines,
			HeaderLines:   *headerLines,
			FooterLines:   *footerLines,
		},
	}
	if opts.format != "json" && opts.format != "xlsx" {
		return fmt.Errorf("format must be 'json' or 'xlsx', got: %s", *format)
	}
	if *merchantLines <= 0 || *headerLines <= 0 || *footerLines <= 0 {
		return fmt.Errorf("line windows must be positive, got merchant=%d header=%d footer=%d",
			*merchantLines, *headerLines, *footerLines)
	}
	if opts.concurrency < 1 {
		opts.concurrency = 1
	}

	inputs := fs.GetArgs()
	if len(inputs) == 0 {
		inputs = []string{stdinName}
	}

	results, err := extractAll(ctx, inputs, stdin, opts)
	if err != nil {
		return err
	}

	if opts.format == "xlsx" {
		return writeWorkbooks(results, opts.outDir, stdout)
	}
	return writeJSON(results, stdout)
}

// extractAll reads and extracts every input, at most opts.concurrency at a time
func extractAll(ctx context.Context, inputs []string, stdin io.Reader, opts options) ([]result, error) {
	service := usecase.NewDocumentService(nil, usecase.NewExtractor(opts.extractor), nil, usecase.DocumentServiceConfig{})
	results := make([]result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)

	for i, name := range inputs {
		i, name := i, name
		g.Go(func() error {
			lines, err := readLines(name, stdin)
			if err != nil {
				return fmt.Errorf("%s: %w", displayName(name), err)
			}

			record, err := service.ExtractLines(ctx, lines)
			if err != nil {
				return fmt.Errorf("%s: %w", displayName(name), err)
			}

			results[i] = result{name: name, record: record}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// readLines loads one input as OCR lines
func readLines(name string, stdin io.Reader) ([]string, error) {
	var (
		data []byte
		err  error
	)
	if name == stdinName {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(name), ".json") {
		return payload.DecodeLines(data)
	}
	return payload.SplitText(string(data)), nil
}

func writeJSON(results []result, stdout io.Writer) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	if len(results) == 1 {
		return enc.Encode(results[0].record)
	}

	records := make([]*domain.StructuredRecord, len(results))
	for i, r := range results {
		records[i] = r.record
	}
	return enc.Encode(records)
}

func writeWorkbooks(results []result, outDir string, stdout io.Writer) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, r := range results {
		data, err := export.RecordWorkbook(r.record)
		if err != nil {
			return fmt.Errorf("%s: %w", displayName(r.name), err)
		}

		path := filepath.Join(outDir, workbookName(r.name))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintln(stdout, path)
	}
	return nil
}

// workbookName maps an input path to the base name of its workbook
func workbookName(name string) string {
	if name == stdinName {
		return "stdin.xlsx"
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
}

func displayName(name string) string {
	if name == stdinName {
		return "stdin"
	}
	return name
}
