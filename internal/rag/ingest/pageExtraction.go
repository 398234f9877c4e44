package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	dpdf "github.com/dslipak/pdf"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/lu4p/cat"

	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
)

type pdfInfo struct {
	Title  string
	Author string
}

var errPageTimeout = errors.New("page extraction timed out")

// extractPDF tries dslipak first and falls back to ledongthuc when the primary
// parser fails or finds no text.
func (e *FileExtractor) extractPDF(ctx context.Context, path string) ([]commonModels.Page, pdfInfo, error) {
	pages, info, err := e.extractPrimary(ctx, path)
	if err == nil && len(cleanPages(pages)) > 0 {
		return pages, info, nil
	}
	if err != nil {
		logger.FromContext(ctx).Warn("primary pdf parser failed, trying fallback", "path", path, "error", err)
	}

	fallback, ferr := e.extractFallback(ctx, path)
	if ferr != nil {
		if err == nil {
			err = ferr
		}
		return nil, pdfInfo{}, ragErrors.Content("ingest.pdf", err, "cannot parse pdf %s", path)
	}
	return fallback, info, nil
}

func (e *FileExtractor) extractPrimary(ctx context.Context, path string) (pages []commonModels.Page, info pdfInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, pdfInfo{}, err
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return nil, pdfInfo{}, err
	}
	reader, err := dpdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, pdfInfo{}, fmt.Errorf("failed to open pdf: %w", err)
	}

	meta := reader.Trailer().Key("Info")
	info = pdfInfo{
		Title:  strings.TrimSpace(meta.Key("Title").Text()),
		Author: strings.TrimSpace(meta.Key("Author").Text()),
	}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if ctx.Err() != nil {
			return nil, info, ctx.Err()
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := protectExtract(ctx, e.pageTimeout, func() (string, error) {
			return page.GetPlainText(nil)
		})
		if err != nil {
			logger.FromContext(ctx).Warn("skipping unreadable page", "page", i, "error", err)
			continue
		}
		pages = append(pages, commonModels.Page{Number: i, Text: content})
	}
	return pages, info, nil
}

func (e *FileExtractor) extractFallback(ctx context.Context, path string) (pages []commonModels.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fallback pdf parser panic: %v", r)
		}
	}()

	f, reader, err := lpdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := protectExtract(ctx, e.pageTimeout, func() (string, error) {
			return page.GetPlainText(nil)
		})
		if err != nil {
			continue
		}
		pages = append(pages, commonModels.Page{Number: i, Text: content})
	}
	return pages, nil
}

// extractText reads office and plain text files. Form feeds split pages; without
// them the whole file is page 1.
func extractText(path string) ([]commonModels.Page, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, ragErrors.Content("ingest.text", err, "failed to extract %s", path)
	}
	parts := strings.Split(text, "\f")
	pages := make([]commonModels.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, commonModels.Page{Number: i + 1, Text: part})
	}
	return pages, nil
}

// protectExtract bounds a single page parse; some malformed content streams
// make the parsers spin.
func protectExtract(ctx context.Context, timeout time.Duration, fn func() (string, error)) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("page parser panic: %v", r)}
			}
		}()
		content, err := fn()
		resChan <- result{content, err}
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-timer:
		return "", errPageTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
