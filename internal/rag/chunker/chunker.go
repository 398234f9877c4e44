// Package chunker splits page text into overlapping, page-attributed chunks
// with content-addressed ids.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
)

type Draft struct {
	Text string
	Page int
}

type boundary func(runes []rune, i int) bool

// ordered from best to worst, a hard cut follows when none match
var boundaries = []boundary{
	paragraphEnd,
	sentenceEnd,
	lineEnd,
	wordEnd,
}

// Split cuts one page into drafts of at most targetSize runes. Every draft after
// the first starts with the trailing overlap runes of the previous draft; overlap
// never reaches into another page so each draft belongs to pageNumber.
func Split(pageText string, pageNumber, targetSize, overlap int) ([]Draft, error) {
	if targetSize <= 0 {
		return nil, ragErrors.Configuration("chunker.split", "target size must be positive, got %d", targetSize)
	}
	if overlap < 0 || overlap >= targetSize {
		return nil, ragErrors.Configuration("chunker.split", "overlap %d must be in [0, %d)", overlap, targetSize)
	}

	runes := []rune(strings.TrimSpace(pageText))
	var drafts []Draft
	start := 0
	for start < len(runes) {
		budget := targetSize
		var prefix []rune
		if len(drafts) > 0 && overlap > 0 {
			prefix = tail([]rune(drafts[len(drafts)-1].Text), overlap)
			budget = max(targetSize-len(prefix)-1, 1)
		}

		end := start + budget
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = findCut(runes, start, end, max(budget/4, 1))
		}

		body := strings.TrimRightFunc(string(runes[start:end]), unicode.IsSpace)
		start = skipSpace(runes, end)
		if body == "" {
			continue
		}
		text := body
		if len(prefix) > 0 {
			text = string(prefix) + " " + body
		}
		drafts = append(drafts, Draft{Text: text, Page: pageNumber})
	}
	return drafts, nil
}

// Build chunks every page of doc in order. chunk_index runs across the whole
// document while the id only depends on the page, the position within the page
// and the text, so untouched pages keep their ids when another page changes.
func Build(doc commonModels.Document, targetSize, overlap int) ([]commonModels.Chunk, error) {
	if strings.TrimSpace(doc.SourceID) == "" {
		return nil, ragErrors.Validation("chunker.build", "document has no source id")
	}
	title := doc.Title
	if title == "" {
		title = doc.SourceID
	}

	var chunks []commonModels.Chunk
	previousPage := 0
	for _, page := range doc.Pages {
		if page.Number <= previousPage {
			return nil, ragErrors.Validation("chunker.build", "page numbers must be 1-based and increasing, got %d after %d", page.Number, previousPage)
		}
		previousPage = page.Number

		drafts, err := Split(page.Text, page.Number, targetSize, overlap)
		if err != nil {
			return nil, err
		}
		for ordinal, d := range drafts {
			index := len(chunks)
			chunks = append(chunks, commonModels.Chunk{
				ChunkID:    ChunkID(doc.SourceID, d.Page, ordinal, d.Text),
				SourceID:   doc.SourceID,
				ChunkIndex: index,
				Text:       d.Text,
				Metadata: commonModels.ChunkMetadata{
					SourceID:   doc.SourceID,
					Page:       d.Page,
					Title:      title,
					ChunkIndex: index,
				},
			})
		}
	}
	return chunks, nil
}

func ChunkID(sourceID string, page, ordinal int, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%s|%d|%d|", len(sourceID), sourceID, page, ordinal)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// findCut returns the cut position in (start, limit], preferring the best
// boundary class found within tolerance runes before limit.
func findCut(runes []rune, start, limit, tolerance int) int {
	lower := max(limit-tolerance, start+1)
	for _, isBoundary := range boundaries {
		for i := limit; i >= lower; i-- {
			if isBoundary(runes, i) {
				return i
			}
		}
	}
	return limit
}

func paragraphEnd(runes []rune, i int) bool {
	return i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n'
}

func sentenceEnd(runes []rune, i int) bool {
	if i < 1 || i >= len(runes) {
		return false
	}
	switch runes[i-1] {
	case '.', '!', '?':
		return unicode.IsSpace(runes[i])
	}
	return false
}

func lineEnd(runes []rune, i int) bool {
	return i >= 1 && runes[i-1] == '\n'
}

func wordEnd(runes []rune, i int) bool {
	return i < len(runes) && unicode.IsSpace(runes[i])
}

func tail(runes []rune, n int) []rune {
	if len(runes) <= n {
		return runes
	}
	return runes[len(runes)-n:]
}

func skipSpace(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}
