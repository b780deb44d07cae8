package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/weave-logic-ai/recall/pkg/types"
)

// searchVector runs a cosine similarity query. With sqlite-vec compiled in,
// the distance computation happens inside SQLite; otherwise every candidate
// embedding is scanned and scored in Go.
func searchVector(ctx context.Context, db *sql.DB, queryVector []float32, opts VectorQuery) ([]VectorResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", types.ErrInput)
	}
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, db, queryVector, opts)
	}
	return searchVectorScan(ctx, db, queryVector, opts)
}

// searchVectorOptimized pushes distance, threshold, and limit into SQL via
// the sqlite-vec extension
func searchVectorOptimized(ctx context.Context, db *sql.DB, queryVector []float32, opts VectorQuery) ([]VectorResult, error) {
	blob := serializeVector(queryVector)

	query := `
		SELECT e.chunk_id, 1.0 - vec_distance_cosine(e.vector, ?) AS similarity
		FROM embeddings e
		WHERE e.dimension = ?
	`
	args := []any{blob, len(queryVector)}

	if opts.Model != "" {
		query += " AND e.model = ?"
		args = append(args, opts.Model)
	}
	if opts.ExcludeChunkID != "" {
		query += " AND e.chunk_id != ?"
		args = append(args, opts.ExcludeChunkID)
	}
	query += " AND (1.0 - vec_distance_cosine(e.vector, ?)) >= ?"
	args = append(args, blob, opts.Threshold)

	// Deterministic tie-break on chunk id
	query += " ORDER BY similarity DESC, e.chunk_id"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", types.ErrStorage, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	results := make([]VectorResult, 0)
	for rows.Next() {
		var r VectorResult
		if err := rows.Scan(&r.ChunkID, &r.Similarity); err != nil {
			return nil, fmt.Errorf("%w: scan vector result: %v", types.ErrStorage, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate vector results: %v", types.ErrStorage, err)
	}
	return results, nil
}

// searchVectorScan is the pure Go full scan, O(n) over stored embeddings
func searchVectorScan(ctx context.Context, db *sql.DB, queryVector []float32, opts VectorQuery) ([]VectorResult, error) {
	query := "SELECT chunk_id, vector FROM embeddings WHERE dimension = ?"
	args := []any{len(queryVector)}

	if opts.Model != "" {
		query += " AND model = ?"
		args = append(args, opts.Model)
	}
	if opts.ExcludeChunkID != "" {
		query += " AND chunk_id != ?"
		args = append(args, opts.ExcludeChunkID)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query embeddings: %v", types.ErrStorage, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	results := make([]VectorResult, 0)
	for rows.Next() {
		var chunkID string
		var blob []byte
		if err := rows.Scan(&chunkID, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan embedding: %v", types.ErrStorage, err)
		}

		similarity := cosineSimilarity(queryVector, deserializeVector(blob))
		if similarity < opts.Threshold {
			continue
		}
		results = append(results, VectorResult{ChunkID: chunkID, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate embeddings: %v", types.ErrStorage, err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// searchText runs BM25 full-text search over chunk content via FTS5 and
// normalizes scores to [0,1]
func searchText(ctx context.Context, db *sql.DB, query string, limit int) ([]TextResult, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, fmt.Errorf("%w: empty search query", types.ErrInput)
	}

	sqlQuery := `
		SELECT c.id, bm25(chunks_fts) AS score
		FROM chunks_fts
		INNER JOIN chunks c ON c.rowid = chunks_fts.rowid
		WHERE chunks_fts MATCH ?
		ORDER BY score, c.id
	`
	args := []any{sanitized}
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: full-text search: %v", types.ErrStorage, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	results := make([]TextResult, 0)
	for rows.Next() {
		var r TextResult
		if err := rows.Scan(&r.ChunkID, &r.Score); err != nil {
			return nil, fmt.Errorf("%w: scan text result: %v", types.ErrStorage, err)
		}
		// BM25 scores from FTS5 are negative, lower is better. Map into
		// (0,1] so they compose with vector scores.
		r.Score = 1.0 / (1.0 + math.Abs(r.Score)/50.0)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate text results: %v", types.ErrStorage, err)
	}
	return results, nil
}

// serializeVector packs a float32 slice into a little-endian blob
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector unpacks a little-endian blob into a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

// cosineSimilarity computes cosine similarity in [-1,1]. Mismatched
// dimensions and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var ftsOperatorPattern = regexp.MustCompile(`\b(AND|OR|NOT|NEAR)\b`)

// sanitizeFTSQuery escapes FTS5 operators and special characters so user
// queries are matched as plain terms
func sanitizeFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	replacer := strings.NewReplacer(
		`"`, `""`,
		`*`, ` `,
		`(`, ` `,
		`)`, ` `,
		`:`, ` `,
		`^`, ` `,
		`-`, ` `,
	)
	escaped := replacer.Replace(query)

	escaped = ftsOperatorPattern.ReplaceAllStringFunc(escaped, strings.ToLower)

	// Quote each remaining term so FTS treats it literally
	terms := strings.Fields(escaped)
	for i, term := range terms {
		terms[i] = `"` + term + `"`
	}
	return strings.Join(terms, " ")
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
