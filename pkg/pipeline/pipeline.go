package pipeline

import (
	"errors"

	"github.com/kidneysync/platform/pkg/common/models"
	"github.com/kidneysync/platform/pkg/schema"
)

const (
	VerdictHealthy = "Likely Healthy"
	VerdictAtRisk  = "Risk of Kidney Disease"
)

// Classifier is the opaque model capability: any fitted binary classifier
// returning a positive-class probability satisfies it.
type Classifier interface {
	Predict(sample []float64) float64
}

type Prediction struct {
	Label   int     `json:"label"`
	Verdict string  `json:"verdict"`
	Score   float64 `json:"score"`
}

// Pipeline ties encoding and classification together for one prediction.
// Gaps in the raw record are filled with per-field defaults, never with
// dataset statistics: this is the request-time path, distinct from
// training-time imputation.
type Pipeline struct {
	schema schema.Schema
	model  Classifier
}

// New builds a pipeline after verifying the fitted model's feature list
// matches the live schema. A mismatch is a programming error and fails
// construction.
func New(s schema.Schema, model Classifier, fittedFeatures []string) (*Pipeline, error) {
	if model == nil {
		return nil, errors.New("nil classifier")
	}
	if err := s.CheckCompatible(fittedFeatures); err != nil {
		return nil, err
	}
	return &Pipeline{schema: s, model: model}, nil
}

func (p *Pipeline) Schema() schema.Schema {
	return p.schema
}

// Predict encodes raw (partial allowed), classifies and maps the label to
// a human-readable verdict. ValidationError and UnknownCategoryError
// surface to the caller; deterministic for a fixed fitted model.
func (p *Pipeline) Predict(raw models.RawRecord) (Prediction, error) {
	encoded, err := schema.Encode(raw, p.schema)
	if err != nil {
		return Prediction{}, err
	}
	if err := p.schema.CheckCompatible(encoded.Names); err != nil {
		return Prediction{}, err
	}

	score := p.model.Predict(encoded.Values)
	label := 0
	if score >= 0.5 {
		label = 1
	}
	return Prediction{Label: label, Verdict: Verdict(label), Score: score}, nil
}

func Verdict(label int) string {
	if label == 1 {
		return VerdictAtRisk
	}
	return VerdictHealthy
}
