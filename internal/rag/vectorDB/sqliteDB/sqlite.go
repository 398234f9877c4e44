// Package sqliteDB persists index entries in a single SQLite file for
// deployments without a vector database. Similarity is computed in process.
package sqliteDB

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag/vectorDB"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("SQLiteVectors")

type Store struct {
	db *sql.DB
}

var _ vectorDB.Storage = (*Store)(nil)

func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ragErrors.Configuration("sqlite.open", "create db dir: %v", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, ragErrors.Configuration("sqlite.open", "open db: %v", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, ragErrors.Configuration("sqlite.open", "migrate: %v", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name      TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		collection  TEXT NOT NULL,
		chunk_id    TEXT NOT NULL,
		source_id   TEXT NOT NULL,
		page        INTEGER NOT NULL,
		title       TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		text        TEXT NOT NULL,
		vector      BLOB NOT NULL,
		PRIMARY KEY (collection, chunk_id)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(collection, source_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if collection == "" {
		return ragErrors.Configuration("sqlite.ensureCollection", "empty collection name")
	}
	var existing int
	err := s.db.QueryRowContext(ctx, `SELECT dimension FROM collections WHERE name = ?`, collection).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx, `INSERT INTO collections (name, dimension) VALUES (?, ?)`, collection, dimension)
		if err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		logger.Info("created collection", "collection", collection, "dimension", dimension)
		return nil
	case err != nil:
		return fmt.Errorf("read collection: %w", err)
	case existing != dimension:
		return ragErrors.Configuration("sqlite.ensureCollection",
			"collection %q holds %d-dimensional vectors, embedder produces %d", collection, existing, dimension)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, collection string, entries []commonModels.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, chunk_id, source_id, page, title, chunk_index, text, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, chunk_id) DO UPDATE SET
			source_id = excluded.source_id,
			page = excluded.page,
			title = excluded.title,
			chunk_index = excluded.chunk_index,
			text = excluded.text,
			vector = excluded.vector`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx, collection, e.ChunkID, e.Metadata.SourceID, e.Metadata.Page,
			e.Metadata.Title, e.Metadata.ChunkIndex, e.Text, EncodeVector(e.Vector))
		if err != nil {
			return fmt.Errorf("upsert %s: %w", e.ChunkID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Query(ctx context.Context, collection string, vector []float32, k int, filter vectorDB.Filter) ([]commonModels.ScoredEntry, error) {
	where, args := whereClause(collection, filter)
	entries, err := s.load(ctx, where, args)
	if err != nil {
		return nil, err
	}
	qNorm := vectorDB.Norm(vector)
	matches := make([]commonModels.ScoredEntry, 0, len(entries))
	for _, e := range entries {
		matches = append(matches, commonModels.ScoredEntry{
			Entry: e,
			Score: vectorDB.Cosine(vector, qNorm, e.Vector, vectorDB.Norm(e.Vector)),
		})
	}
	return vectorDB.Rank(matches, k), nil
}

func (s *Store) DeleteSource(ctx context.Context, collection string, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ? AND source_id = ?`, collection, sourceID)
	if err != nil {
		return fmt.Errorf("delete source %s: %w", sourceID, err)
	}
	return nil
}

func (s *Store) DeleteIDs(ctx context.Context, collection string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	for _, id := range chunkIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ? AND chunk_id = ?`, collection, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *Store) SourceChunkIDs(ctx context.Context, collection string, sourceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id FROM chunks WHERE collection = ? AND source_id = ? ORDER BY chunk_index`, collection, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list chunks of %s: %w", sourceID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (s *Store) LoadAll(ctx context.Context, collection string) ([]commonModels.IndexEntry, error) {
	return s.load(ctx, "collection = ?", []any{collection})
}

func (s *Store) load(ctx context.Context, where string, args []any) ([]commonModels.IndexEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, source_id, page, title, chunk_index, text, vector
		FROM chunks WHERE `+where+` ORDER BY source_id, chunk_index`, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var entries []commonModels.IndexEntry
	for rows.Next() {
		var (
			e    commonModels.IndexEntry
			blob []byte
		)
		if err := rows.Scan(&e.ChunkID, &e.Metadata.SourceID, &e.Metadata.Page, &e.Metadata.Title,
			&e.Metadata.ChunkIndex, &e.Text, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		e.Vector = DecodeVector(blob)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func whereClause(collection string, f vectorDB.Filter) (string, []any) {
	conds := []string{"collection = ?"}
	args := []any{collection}
	if f.SourceID != nil {
		conds = append(conds, "source_id = ?")
		args = append(args, *f.SourceID)
	}
	if f.Title != nil {
		conds = append(conds, "title = ?")
		args = append(args, *f.Title)
	}
	if f.Page != nil {
		conds = append(conds, "page = ?")
		args = append(args, *f.Page)
	}
	if f.ChunkIndex != nil {
		conds = append(conds, "chunk_index = ?")
		args = append(args, *f.ChunkIndex)
	}
	return strings.Join(conds, " AND "), args
}

// EncodeVector stores float32 components little endian, four bytes each.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func DecodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
