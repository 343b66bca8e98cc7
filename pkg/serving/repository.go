package serving

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kidneysync/platform/pkg/common/models"
	"github.com/kidneysync/platform/pkg/pipeline"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog is the persistence model for the prediction audit trail.
type PredictionLog struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	RequestID string            `gorm:"column:request_id"`
	ModelName string            `gorm:"column:model_name"`
	Fields    datatypes.JSONMap `gorm:"column:fields"`
	Label     int               `gorm:"column:label"`
	Verdict   string            `gorm:"column:verdict"`
	Score     float64           `gorm:"column:score"`
	LatencyMs float64           `gorm:"column:latency_ms"`
	CreatedAt time.Time         `gorm:"column:created_at"`
}

func (PredictionLog) TableName() string {
	return "prediction_logs"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, requestID, modelName string, fields models.RawRecord, prediction pipeline.Prediction, latency time.Duration) error {
	raw := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		raw[k] = v
	}
	log := PredictionLog{
		ID:        uuid.New(),
		RequestID: requestID,
		ModelName: modelName,
		Fields:    datatypes.JSONMap(raw),
		Label:     prediction.Label,
		Verdict:   prediction.Verdict,
		Score:     prediction.Score,
		LatencyMs: float64(latency.Microseconds()) / 1000.0,
		CreatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&log).Error
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
