package models

import (
	"time"

	"github.com/google/uuid"
)

// RawRecord maps field names to raw values as they arrive from a form
// submission, an OCR extraction or a dataset row. Keys may be missing;
// a missing key means the value is unknown.
type RawRecord map[string]string

// Prediction API
type PredictionRequest struct {
	Fields    RawRecord `json:"fields"`
	RequestID string    `json:"request_id,omitempty"`
}

type PredictionResponse struct {
	RequestID    string        `json:"request_id,omitempty"`
	Label        int           `json:"label"`
	Verdict      string        `json:"verdict"`
	Score        float64       `json:"score"`
	ModelVersion string        `json:"model_version"`
	Latency      time.Duration `json:"latency"`
}

// Report extraction API
type ExtractionResponse struct {
	Fields           RawRecord `json:"fields"`
	RawText          string    `json:"raw_text,omitempty"`
	ExtractionFailed bool      `json:"extraction_failed"`
	FailureReason    string    `json:"failure_reason,omitempty"`
}

// ReportPredictionResponse combines an upload-driven extraction with the
// prediction made from the extracted (plus overridden) fields.
type ReportPredictionResponse struct {
	Extraction ExtractionResponse `json:"extraction"`
	Prediction PredictionResponse `json:"prediction"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // prediction-completed, model-trained, dataset-updated
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Model Training
type TrainingJob struct {
	ID           uuid.UUID              `json:"id"`
	ModelType    string                 `json:"model_type"`
	Config       map[string]interface{} `json:"config"`
	Status       string                 `json:"status"`
	CreatedAt    time.Time              `json:"created_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	Metrics      map[string]interface{} `json:"metrics,omitempty"`
	ArtifactPath string                 `json:"artifact_path,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}

// Accounts
type User struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	FullName  string    `json:"full_name"`
}
