package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"pdf-qa-be/pkg/embedding"
	"pdf-qa-be/pkg/utils"
)

const (
	// ChunkSize 1500 chars (approx 375 tokens), overlap 200 chars.
	chunkSize    = 1500
	chunkOverlap = 200
)

// PgVectorClient stores embeddings in Postgres with the pgvector extension.
type PgVectorClient struct {
	db       *gorm.DB
	provider embedding.Provider
}

var _ Client = &PgVectorClient{}

func NewPgVectorClient(db *gorm.DB, provider embedding.Provider) *PgVectorClient {
	return &PgVectorClient{
		db:       db,
		provider: provider,
	}
}

type chunkMetadata struct {
	Filename    string `json:"filename"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

func (c *PgVectorClient) Ingest(ctx context.Context, sessionId string, docId uuid.UUID, filename, text string) error {
	chunks := utils.SplitText(text, chunkSize, chunkOverlap)

	rows := make([]*DocumentEmbedding, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := c.provider.Generate(chunk, embedding.TaskDocument)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", i, err)
		}

		meta, err := json.Marshal(chunkMetadata{
			Filename:    filename,
			ChunkIndex:  i,
			TotalChunks: len(chunks),
		})
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}

		rows = append(rows, &DocumentEmbedding{
			Id:             uuid.New(),
			SessionId:      sessionId,
			DocumentId:     docId,
			Document:       chunk,
			EmbeddingValue: pgvector.NewVector(res.Values),
			ChunkIndex:     i,
			Metadata:       meta,
			CreatedAt:      time.Now(),
		})
	}

	if err := c.db.WithContext(ctx).Create(rows).Error; err != nil {
		return fmt.Errorf("store embeddings: %w", err)
	}
	return nil
}

func (c *PgVectorClient) Query(ctx context.Context, sessionId string, question string, topK int) ([]Snippet, error) {
	if topK <= 0 {
		topK = 3
	}

	res, err := c.provider.Generate(question, embedding.TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	queryVector := pgvector.NewVector(res.Values)

	// Cosine distance in pgvector: embedding_value <=> vector.
	// Similarity = 1 - distance.
	type row struct {
		DocumentEmbedding
		Similarity float64
	}
	var rows []row

	err = c.db.WithContext(ctx).
		Table("document_embeddings").
		Select("document_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("session_id = ?", sessionId).
		Order("similarity DESC").
		Limit(topK).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	snippets := make([]Snippet, len(rows))
	for i, r := range rows {
		var meta chunkMetadata
		_ = json.Unmarshal(r.Metadata, &meta)
		snippets[i] = Snippet{
			Document:   r.Document,
			Filename:   meta.Filename,
			Similarity: r.Similarity,
		}
	}
	return snippets, nil
}

func (c *PgVectorClient) DeleteSession(ctx context.Context, sessionId string) error {
	return c.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Delete(&DocumentEmbedding{}).Error
}
