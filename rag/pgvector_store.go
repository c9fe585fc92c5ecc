package rag

import (
	"context"
	"fmt"
	"regexp"

	json "github.com/goccy/go-json"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PGVectorStore 基于 PostgreSQL + pgvector 的 VectorStore，使用余弦距离排序
type PGVectorStore struct {
	db     *gorm.DB
	table  string
	logger *zap.Logger
}

// NewPGVectorStore 创建 pgvector 存储，表名只允许标识符字符
func NewPGVectorStore(db *gorm.DB, table string, logger *zap.Logger) (*PGVectorStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pgvector store requires a database handle")
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid pgvector table name %q", table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGVectorStore{
		db:     db,
		table:  table,
		logger: logger.With(zap.String("component", "pgvector_store"), zap.String("table", table)),
	}, nil
}

// EnsureSchema 创建 vector 扩展与文档表
func (s *PGVectorStore) EnsureSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("pgvector dimensions must be > 0")
	}
	db := s.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	metadata JSONB,
	embedding vector(%d) NOT NULL
)`, s.table, dimensions)
	if err := db.Exec(ddl).Error; err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// AddDocuments 以 upsert 方式写入文档
func (s *PGVectorStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (id, content, source, metadata, embedding) VALUES (?, ?, ?, ?::jsonb, ?)
ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, source = EXCLUDED.source, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`, s.table)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, doc := range docs {
			if doc.ID == "" {
				return fmt.Errorf("document[%d] has empty id", i)
			}
			if len(doc.Embedding) == 0 {
				return fmt.Errorf("document %s has no embedding", doc.ID)
			}
			meta, err := json.Marshal(doc.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata for %s: %w", doc.ID, err)
			}
			if err := tx.Exec(stmt, doc.ID, doc.Content, doc.SourceName(), string(meta), pgvector.NewVector(toFloat32(doc.Embedding))).Error; err != nil {
				return fmt.Errorf("upsert document %s: %w", doc.ID, err)
			}
		}
		return nil
	})
}

type pgvectorRow struct {
	ID       string
	Content  string
	Source   string
	Metadata string
	Score    float64
}

// Search 按余弦距离返回最近的 topK 个文档
func (s *PGVectorStore) Search(ctx context.Context, queryEmbedding []float64, topK int) ([]VectorSearchResult, error) {
	if topK <= 0 {
		return []VectorSearchResult{}, nil
	}
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("query embedding is required")
	}

	vec := pgvector.NewVector(toFloat32(queryEmbedding))
	query := fmt.Sprintf(`SELECT id, content, source, COALESCE(metadata::text, '') AS metadata, 1 - (embedding <=> ?) AS score
FROM %s ORDER BY embedding <=> ? LIMIT ?`, s.table)

	var rows []pgvectorRow
	if err := s.db.WithContext(ctx).Raw(query, vec, vec, topK).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}

	out := make([]VectorSearchResult, 0, len(rows))
	for _, row := range rows {
		doc := Document{ID: row.ID, Content: row.Content, Source: row.Source}
		if row.Metadata != "" && row.Metadata != "null" {
			if err := json.Unmarshal([]byte(row.Metadata), &doc.Metadata); err != nil {
				s.logger.Warn("discarding unreadable metadata", zap.String("id", row.ID), zap.Error(err))
			}
		}
		out = append(out, VectorSearchResult{
			Document: doc,
			Score:    row.Score,
			Distance: 1.0 - row.Score,
		})
	}
	return out, nil
}

// Count 返回表中文档数量
func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Raw(fmt.Sprintf("SELECT count(*) FROM %s", s.table)).Scan(&n).Error; err != nil {
		return 0, fmt.Errorf("pgvector count: %w", err)
	}
	return int(n), nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
