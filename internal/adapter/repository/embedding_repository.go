package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/protokol-team/protokol/internal/domain/entities"
)

// EmbeddingRepository handles segment embedding storage and similarity search
type EmbeddingRepository struct {
	db *gorm.DB
}

// NewEmbeddingRepository creates a new embedding repository
func NewEmbeddingRepository(db *gorm.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// UpsertEmbedding stores the vector for one segment (1:1, replace on conflict).
func (r *EmbeddingRepository) UpsertEmbedding(ctx context.Context, segmentID int64, vec []float32) error {
	emb := entities.SegmentEmbedding{
		SegmentID: segmentID,
		Embedding: pgvector.NewVector(vec),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "segment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding"}),
		}).
		Create(&emb).Error
}

// EmbeddedSegmentIDs returns the ids of segments that already have a vector.
func (r *EmbeddingRepository) EmbeddedSegmentIDs(ctx context.Context, jobID uuid.UUID) (map[int64]bool, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&entities.SegmentEmbedding{}).
		Joins("JOIN segments ON segments.id = segment_embeddings.segment_id").
		Where("segments.job_id = ?", jobID).
		Pluck("segment_embeddings.segment_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// SimilarSegment is one (segment id, cosine score) hit of a similarity query.
type SimilarSegment struct {
	SegmentID int64   `gorm:"column:segment_id"`
	Score     float64 `gorm:"column:score"`
}

// TopKSimilar returns the k most similar segments of a job for the query
// vector, score = 1 - cosine distance, ordered by score descending with
// ties broken by the smaller segment id.
func (r *EmbeddingRepository) TopKSimilar(ctx context.Context, jobID uuid.UUID, vec []float32, k int) ([]SimilarSegment, error) {
	query := pgvector.NewVector(vec)
	var hits []SimilarSegment
	err := r.db.WithContext(ctx).Raw(`
		SELECT e.segment_id,
		       (1 - (e.embedding <=> ?)) AS score
		FROM segment_embeddings e
		JOIN segments s ON s.id = e.segment_id
		WHERE s.job_id = ?
		ORDER BY e.embedding <=> ?, e.segment_id ASC
		LIMIT ?`,
		query, jobID, query, k,
	).Scan(&hits).Error
	if err != nil {
		return nil, err
	}
	return hits, nil
}
