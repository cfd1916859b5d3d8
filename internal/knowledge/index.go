// Package knowledge is the semantic index of protocol records that backs the
// retrieval tool.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DefaultK is the number of documents returned when a search asks for k <= 0.
const DefaultK = 10

// DefaultEmbedBatchSize is the most texts sent in one EmbedDocuments call.
const DefaultEmbedBatchSize = 100

// ErrEmptyQuery is returned when searching with a blank query.
var ErrEmptyQuery = errors.New("empty query")

// Document is one indexed record.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score,omitempty"`
}

// Embedder turns text into vectors. Queries and stored documents may use
// different task types.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Index stores documents with their embeddings in SQLite and ranks them by
// cosine similarity.
type Index struct {
	db        *sql.DB
	embedder  Embedder
	namespace string
	defaultK  int
	batchSize int
	logger    *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithNamespace selects the namespace (index name) documents live in.
func WithNamespace(ns string) Option {
	return func(ix *Index) { ix.namespace = ns }
}

// WithDefaultK sets the result count used when a search asks for k <= 0.
func WithDefaultK(k int) Option {
	return func(ix *Index) {
		if k > 0 {
			ix.defaultK = k
		}
	}
}

// WithEmbedBatchSize caps how many documents are embedded per call.
func WithEmbedBatchSize(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// Open opens (creating if needed) the index database at path.
func Open(path string, embedder Embedder, opts ...Option) (*Index, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	ix := &Index{
		db:        db,
		embedder:  embedder,
		namespace: "butter-fi",
		defaultK:  DefaultK,
		batchSize: DefaultEmbedBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ix)
	}

	if err := ix.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return ix, nil
}

func (ix *Index) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		namespace TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		embedding TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_documents_namespace ON documents(namespace);
	`
	if _, err := ix.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Namespace returns the namespace this index reads and writes.
func (ix *Index) Namespace() string {
	return ix.namespace
}

// Add embeds and stores documents.
func (ix *Index) Add(ctx context.Context, docs []Document) error {
	return ix.replace(ctx, docs, false)
}

// Replace atomically swaps the namespace contents for docs. Embeddings are
// computed before anything is deleted.
func (ix *Index) Replace(ctx context.Context, docs []Document) error {
	return ix.replace(ctx, docs, true)
}

func (ix *Index) replace(ctx context.Context, docs []Document, reset bool) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	vectors, err := ix.embedAll(ctx, texts)
	if err != nil {
		return err
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if reset {
		res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE namespace = ?", ix.namespace)
		if err != nil {
			return fmt.Errorf("reset namespace: %w", err)
		}
		n, _ := res.RowsAffected()
		ix.logger.Info("cleared namespace", zap.String("namespace", ix.namespace), zap.Int64("deleted", n))
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO documents (namespace, content, metadata, embedding) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, d := range docs {
		meta := d.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		embJSON, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, ix.namespace, d.Content, string(metaJSON), string(embJSON)); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	ix.logger.Info("stored documents", zap.String("namespace", ix.namespace), zap.Int("count", len(docs)))
	return nil
}

// embedAll embeds texts in batches of at most batchSize, keeping input order.
func (ix *Index) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += ix.batchSize {
		end := min(start+ix.batchSize, len(texts))
		batch, err := ix.embedder.EmbedDocuments(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed documents %d-%d: %w", start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embed documents: got %d vectors for %d documents", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// ResetNamespace deletes every document in the namespace.
func (ix *Index) ResetNamespace(ctx context.Context) (int64, error) {
	res, err := ix.db.ExecContext(ctx, "DELETE FROM documents WHERE namespace = ?", ix.namespace)
	if err != nil {
		return 0, fmt.Errorf("reset namespace: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of documents in the namespace.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE namespace = ?", ix.namespace).Scan(&n)
	return n, err
}

// Search returns the k documents most similar to query, best first. Ties keep
// insertion order. k <= 0 uses the default.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = ix.defaultK
	}

	qvec, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := ix.db.QueryContext(ctx,
		"SELECT content, metadata, embedding FROM documents WHERE namespace = ? ORDER BY id",
		ix.namespace)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		var content, metaJSON, embJSON string
		if err := rows.Scan(&content, &metaJSON, &embJSON); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}

		var emb []float32
		if err := json.Unmarshal([]byte(embJSON), &emb); err != nil {
			ix.logger.Warn("skipping document with corrupt embedding", zap.Error(err))
			continue
		}
		doc := Document{Content: content, Score: CosineSimilarity(qvec, emb)}
		if err := json.Unmarshal([]byte(metaJSON), &doc.Metadata); err != nil {
			doc.Metadata = map[string]any{}
		}
		results = append(results, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// CosineSimilarity computes cosine similarity between two vectors.
// Vectors of different length or zero norm score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
