// Package ingest turns files on disk into Documents.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/metrics"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("Document Extraction")

// Extractor reads one file into a Document. It fails with a Content error when
// the file cannot be parsed or holds no text.
type Extractor interface {
	Extract(ctx context.Context, path, sourceID, title string) (commonModels.Document, error)
}

type FileExtractor struct {
	pageTimeout    time.Duration
	extractTimeout time.Duration
}

func NewExtractor(cfg config.IngestConfig) *FileExtractor {
	return &FileExtractor{
		pageTimeout:    cfg.PageTimeout.Std(),
		extractTimeout: cfg.ExtractTimeout.Std(),
	}
}

func DocType(path string) commonModels.DocType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".rtf", ".odt":
		return commonModels.DOCX
	case ".txt", ".md":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

func Supported(path string) bool {
	return DocType(path) != commonModels.ERR
}

// SourceIDFor is the default source id of a file: its base name.
func SourceIDFor(path string) string {
	return filepath.Base(path)
}

func (e *FileExtractor) Extract(ctx context.Context, path, sourceID, title string) (commonModels.Document, error) {
	const op = "ingest.extract"
	log := logger.FromContext(ctx).With("path", path)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_extraction", time.Since(start)) }()

	docType := DocType(path)
	if docType == commonModels.ERR {
		return commonModels.Document{}, ragErrors.Validation(op, "unsupported file type %q", filepath.Ext(path))
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return commonModels.Document{}, ragErrors.NotFound(op, "file %s not found", path)
		}
		return commonModels.Document{}, ragErrors.Content(op, err, "cannot read %s", path)
	}
	if sourceID == "" {
		sourceID = SourceIDFor(path)
	}

	if e.extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.extractTimeout)
		defer cancel()
	}

	var (
		pages []commonModels.Page
		info  pdfInfo
		err   error
	)
	switch docType {
	case commonModels.PDF:
		pages, info, err = e.extractPDF(ctx, path)
	default:
		pages, err = extractText(path)
	}
	if ctx.Err() != nil {
		return commonModels.Document{}, ragErrors.Upstream(op, ctx.Err(), false)
	}
	if err != nil {
		log.Error("extraction failed", "error", err)
		return commonModels.Document{}, err
	}

	pages = cleanPages(pages)
	if len(pages) == 0 {
		return commonModels.Document{}, ragErrors.Content(op, nil, "%s contains no extractable text", filepath.Base(path))
	}

	if title == "" {
		title = info.Title
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	log.Debug("document extracted", "pages", len(pages), "type", docType)
	return commonModels.Document{
		SourceID:    sourceID,
		Title:       title,
		Author:      info.Author,
		ContentType: docType,
		Pages:       pages,
	}, nil
}

// cleanPages drops pages without text and repairs invalid utf-8 left by
// broken font maps.
func cleanPages(pages []commonModels.Page) []commonModels.Page {
	out := make([]commonModels.Page, 0, len(pages))
	for _, p := range pages {
		text := p.Text
		if !utf8.ValidString(text) {
			text = strings.ToValidUTF8(text, "")
		}
		text = strings.ReplaceAll(text, "\x00", "")
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, commonModels.Page{Number: p.Number, Text: text})
	}
	return out
}
