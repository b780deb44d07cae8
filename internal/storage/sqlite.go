package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/weave-logic-ai/recall/pkg/types"
)

// contentHashHex fingerprints document content for change detection
func contentHashHex(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// SQLiteStorage implements Storage on a single SQLite database file
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// openDatabase opens a SQLite database with the settings the engine needs
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL keeps readers unblocked while the single writer commits
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable WAL mode: %v", types.ErrStorage, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable foreign keys: %v", types.ErrStorage, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: set busy timeout: %v", types.ErrStorage, err)
	}

	// SQLite allows one writer; serializing through a single connection
	// avoids SQLITE_BUSY churn under concurrent upserts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStorage opens (creating if necessary) the database at dbPath and
// brings the schema up to date.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", types.ErrStorage, err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply migrations: %v", types.ErrStorage, err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Document operations

func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *types.Document) error {
	if doc.ID == "" || doc.SourcePath == "" {
		return fmt.Errorf("%w: document needs id and source path", types.ErrInput)
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = types.ContentTypeGeneric
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO documents (id, source_path, content_type, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_path) DO UPDATE SET
			content_type = excluded.content_type,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		doc.ID, doc.SourcePath, string(contentType), contentHashHex(doc.Content), now, now)
	if err != nil {
		return fmt.Errorf("%w: upsert document %s: %v", types.ErrStorage, doc.SourcePath, err)
	}
	return nil
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, sourcePath string) (*types.Document, error) {
	query := `
		SELECT id, source_path, content_type, created_at
		FROM documents
		WHERE source_path = ?
	`
	var doc types.Document
	var contentType string
	err := s.db.QueryRowContext(ctx, query, sourcePath).Scan(
		&doc.ID, &doc.SourcePath, &contentType, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", sourcePath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document %s: %v", types.ErrStorage, sourcePath, err)
	}
	doc.ContentType = types.ContentType(contentType)
	return &doc, nil
}

// Chunk operations

const chunkColumns = `id, document_id, content, token_count, start_offset, end_offset,
		sequence_index, content_type, metadata, created_at`

func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, documentID string, chunks []*types.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", types.ErrStorage, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Cascades remove the superseded chunks' embeddings
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("%w: delete superseded chunks: %v", types.ErrStorage, err)
	}

	for _, c := range chunks {
		if err := insertChunk(ctx, tx, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit chunk replacement: %v", types.ErrStorage, err)
	}
	return nil
}

func insertChunk(ctx context.Context, q querier, c *types.Chunk) error {
	if err := c.Validate(); err != nil {
		return err
	}

	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("%w: marshal chunk metadata: %v", types.ErrStorage, err)
	}

	query := `
		INSERT INTO chunks (id, document_id, content, token_count, start_offset,
			end_offset, sequence_index, content_type, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.ExecContext(ctx, query,
		c.ID, c.DocumentID, c.Content, c.TokenCount, c.StartOffset,
		c.EndOffset, c.SequenceIndex, string(c.ContentType), string(metadata), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert chunk %s: %v", types.ErrStorage, c.ID, err)
	}
	return nil
}

func scanChunk(scan func(dest ...any) error) (*types.Chunk, error) {
	var c types.Chunk
	var contentType, metadata string
	err := scan(&c.ID, &c.DocumentID, &c.Content, &c.TokenCount, &c.StartOffset,
		&c.EndOffset, &c.SequenceIndex, &contentType, &metadata, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.ContentType = types.ContentType(contentType)
	if err := json.Unmarshal([]byte(metadata), &c.Metadata); err != nil {
		return nil, fmt.Errorf("%w: unmarshal chunk metadata: %v", types.ErrStorage, err)
	}
	return &c, nil
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE id = ?", chunkID)

	c, err := scanChunk(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk %s: %w", chunkID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get chunk %s: %v", types.ErrStorage, chunkID, err)
	}
	return c, nil
}

func (s *SQLiteStorage) ListChunksByDocument(ctx context.Context, documentID string) ([]*types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE document_id = ? ORDER BY sequence_index",
		documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: list chunks for %s: %v", types.ErrStorage, documentID, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectChunks(rows)
}

func (s *SQLiteStorage) ListChunksMissingEmbeddings(ctx context.Context, model string, limit int) ([]*types.Chunk, error) {
	query := `
		SELECT c.id, c.document_id, c.content, c.token_count, c.start_offset,
			c.end_offset, c.sequence_index, c.content_type, c.metadata, c.created_at
		FROM chunks c
		LEFT JOIN embeddings e ON e.chunk_id = c.id AND e.model = ?
		WHERE e.id IS NULL
		ORDER BY c.created_at, c.id
	`
	args := []any{model}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list chunks missing embeddings: %v", types.ErrStorage, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectChunks(rows)
}

func collectChunks(rows *sql.Rows) ([]*types.Chunk, error) {
	chunks := make([]*types.Chunk, 0)
	for rows.Next() {
		c, err := scanChunk(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", types.ErrStorage, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate chunks: %v", types.ErrStorage, err)
	}
	return chunks, nil
}

// Embedding operations

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, emb *types.Embedding) error {
	return upsertEmbedding(ctx, s.db, emb)
}

func (s *SQLiteStorage) UpsertEmbeddings(ctx context.Context, embs []*types.Embedding) error {
	if len(embs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", types.ErrStorage, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, emb := range embs {
		if err := upsertEmbedding(ctx, tx, emb); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit embedding batch: %v", types.ErrStorage, err)
	}
	return nil
}

func upsertEmbedding(ctx context.Context, q querier, emb *types.Embedding) error {
	if emb.ChunkID == "" || emb.Model == "" {
		return fmt.Errorf("%w: embedding needs chunk id and model", types.ErrInput)
	}
	if len(emb.Vector) == 0 {
		return fmt.Errorf("%w: embedding vector is empty", types.ErrInput)
	}

	createdAt := emb.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO embeddings (chunk_id, vector, dimension, model, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id, model) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			created_at = excluded.created_at
	`
	_, err := q.ExecContext(ctx, query,
		emb.ChunkID, serializeVector(emb.Vector), len(emb.Vector), emb.Model, createdAt)
	if err != nil {
		return fmt.Errorf("%w: upsert embedding for %s: %v", types.ErrStorage, emb.ChunkID, err)
	}
	return nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID, model string) (*types.Embedding, error) {
	query := `
		SELECT id, chunk_id, vector, dimension, model, created_at
		FROM embeddings
		WHERE chunk_id = ? AND model = ?
	`
	var emb types.Embedding
	var blob []byte
	err := s.db.QueryRowContext(ctx, query, chunkID, model).Scan(
		&emb.ID, &emb.ChunkID, &blob, &emb.Dimension, &emb.Model, &emb.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("embedding for %s under %s: %w", chunkID, model, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get embedding for %s: %v", types.ErrStorage, chunkID, err)
	}

	emb.Vector = deserializeVector(blob)
	return &emb, nil
}

// Search primitives

func (s *SQLiteStorage) SearchText(ctx context.Context, query string, limit int) ([]TextResult, error) {
	return searchText(ctx, s.db, query, limit)
}

func (s *SQLiteStorage) SearchVector(ctx context.Context, vector []float32, opts VectorQuery) ([]VectorResult, error) {
	return searchVector(ctx, s.db, vector, opts)
}

// Stats

func (s *SQLiteStorage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		SchemaVersion: CurrentSchemaVersion,
		VectorBackend: BuildMode,
		DatabasePath:  s.path,
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM chunks", &stats.Chunks},
		{"SELECT COUNT(*) FROM embeddings", &stats.Embeddings},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("%w: collect stats: %v", types.ErrStorage, err)
		}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT model FROM embeddings ORDER BY model")
	if err != nil {
		return nil, fmt.Errorf("%w: list models: %v", types.ErrStorage, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var model string
		if err := rows.Scan(&model); err != nil {
			return nil, fmt.Errorf("%w: scan model: %v", types.ErrStorage, err)
		}
		stats.Models = append(stats.Models, model)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate models: %v", types.ErrStorage, err)
	}

	var last sql.NullTime
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM documents").Scan(&last); err == nil && last.Valid {
		stats.LastProcessed = last.Time
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DatabaseSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	return stats, nil
}
