package commonModels

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"

type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is produced by extraction and never mutated afterwards.
type Document struct {
	SourceID    string  `json:"source_id"`
	Title       string  `json:"title"`
	Author      string  `json:"author,omitempty"`
	ContentType DocType `json:"content_type,omitempty"`
	Pages       []Page  `json:"pages"`
}

type ChunkMetadata struct {
	SourceID   string `json:"source_id"`
	Page       int    `json:"page"`
	Title      string `json:"title"`
	ChunkIndex int    `json:"chunk_index"`
}

type Chunk struct {
	ChunkID    string        `json:"chunk_id"`
	SourceID   string        `json:"source_id"`
	ChunkIndex int           `json:"chunk_index"`
	Text       string        `json:"text"`
	Metadata   ChunkMetadata `json:"metadata"`
}

type IndexEntry struct {
	ChunkID  string        `json:"chunk_id"`
	Text     string        `json:"text"`
	Vector   []float32     `json:"-"`
	Metadata ChunkMetadata `json:"metadata"`
}

func (e IndexEntry) Chunk() Chunk {
	return Chunk{
		ChunkID:    e.ChunkID,
		SourceID:   e.Metadata.SourceID,
		ChunkIndex: e.Metadata.ChunkIndex,
		Text:       e.Text,
		Metadata:   e.Metadata,
	}
}

type ScoredEntry struct {
	Entry IndexEntry
	Score float32
}

type RetrievedChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

type Citation struct {
	SourceID string  `json:"source_id"`
	Title    string  `json:"title,omitempty"`
	Page     int     `json:"page"`
	ChunkID  string  `json:"chunk_id,omitempty"`
	Excerpt  string  `json:"excerpt"`
	Score    float32 `json:"score"`
}

type IndexStats struct {
	TotalChunks    int      `json:"total_chunks"`
	UniqueSources  int      `json:"unique_sources"`
	Sources        []string `json:"sources"`
	CollectionName string   `json:"collection_name"`
	Version        uint64   `json:"version"`
}
