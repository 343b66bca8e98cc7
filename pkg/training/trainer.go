package training

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/kidneysync/platform/pkg/dataset"
	"github.com/kidneysync/platform/pkg/ml/forest"
	"github.com/kidneysync/platform/pkg/ml/linear"
	"github.com/kidneysync/platform/pkg/schema"
	"github.com/kidneysync/platform/pkg/serving/predictor"
)

// Trainer runs one full training pass: load the dataset, impute and
// encode, hold out a test split, fit, evaluate, and write a versioned
// model artifact plus the <model>_latest.json pointer the serving layer
// watches.
type Trainer struct {
	Schema      schema.Schema
	DatasetPath string
	LabelColumn string
	ArtifactDir string
	ModelName   string
	ModelType   string
	TestSplit   float64
	Seed        int64
}

func (t Trainer) Run(ctx context.Context, jobID string) (string, map[string]interface{}, error) {
	start := time.Now().UTC()

	rows, err := dataset.Load(t.DatasetPath, t.LabelColumn, t.Schema)
	if err != nil {
		return "", nil, fmt.Errorf("load dataset: %w", err)
	}
	if len(rows) == 0 {
		return "", nil, fmt.Errorf("dataset %s has no usable rows", t.DatasetPath)
	}

	table, _, err := dataset.Prepare(rows, t.Schema)
	if err != nil {
		return "", nil, fmt.Errorf("prepare dataset: %w", err)
	}

	trainSamples, trainLabels, testSamples, testLabels := split(table, t.TestSplit, t.Seed)

	var artifact predictor.Artifact
	artifact.Model.SchemaVersion = t.Schema.Version
	artifact.Model.SchemaFingerprint = t.Schema.Fingerprint()
	artifact.Model.FeatureNames = table.FeatureNames
	artifact.JobID = jobID
	artifact.TrainedAt = time.Now().UTC()

	metrics := map[string]interface{}{
		"training_samples": len(trainSamples),
		"test_samples":     len(testSamples),
	}

	switch t.ModelType {
	case predictor.ModelTypeLogistic:
		model, fitMetrics := linear.Train(trainSamples, trainLabels, linear.Options{})
		artifact.Model.Type = predictor.ModelTypeLogistic
		artifact.Model.Logistic = &model
		metrics["train_accuracy"] = fitMetrics.Accuracy
		metrics["train_loss"] = fitMetrics.Loss
		metrics["test_accuracy"] = accuracy(model, testSamples, testLabels)
	case predictor.ModelTypeForest, "":
		model, fitMetrics := forest.Train(trainSamples, trainLabels, forest.Options{Trees: 100, Seed: t.Seed})
		artifact.Model.Type = predictor.ModelTypeForest
		artifact.Model.Forest = &model
		metrics["train_accuracy"] = fitMetrics.Accuracy
		metrics["test_accuracy"] = accuracy(model, testSamples, testLabels)
	default:
		return "", nil, fmt.Errorf("unknown model type %q", t.ModelType)
	}

	metrics["duration_seconds"] = time.Since(start).Seconds()
	artifact.Metrics = metrics

	path, err := t.writeArtifact(jobID, artifact)
	if err != nil {
		return "", nil, fmt.Errorf("write artifact: %w", err)
	}
	return path, metrics, nil
}

type scorer interface {
	Predict(sample []float64) float64
}

func accuracy(model scorer, samples [][]float64, labels []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var correct int
	for i, sample := range samples {
		p := model.Predict(sample)
		if (p >= 0.5 && labels[i] == 1) || (p < 0.5 && labels[i] == 0) {
			correct++
		}
	}
	return float64(correct) / float64(len(samples))
}

func split(table dataset.TrainingTable, testFraction float64, seed int64) ([][]float64, []float64, [][]float64, []float64) {
	n := len(table.Samples)
	if testFraction <= 0 || testFraction >= 1 {
		testFraction = 0.2
	}
	testCount := int(float64(n) * testFraction)

	rng := rand.New(rand.NewSource(seed))
	order := rng.Perm(n)

	var trainSamples, testSamples [][]float64
	var trainLabels, testLabels []float64
	for i, idx := range order {
		if i < testCount {
			testSamples = append(testSamples, table.Samples[idx])
			testLabels = append(testLabels, table.Labels[idx])
		} else {
			trainSamples = append(trainSamples, table.Samples[idx])
			trainLabels = append(trainLabels, table.Labels[idx])
		}
	}
	return trainSamples, trainLabels, testSamples, testLabels
}

func (t Trainer) writeArtifact(jobID string, artifact predictor.Artifact) (string, error) {
	if err := os.MkdirAll(t.ArtifactDir, 0o755); err != nil {
		return "", err
	}

	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", err
	}

	name := t.ModelName
	if name == "" {
		name = "ckd-risk"
	}

	versioned := filepath.Join(t.ArtifactDir, fmt.Sprintf("%s_%s.json", name, jobID))
	if jobID == "" {
		versioned = filepath.Join(t.ArtifactDir, fmt.Sprintf("%s_%d.json", name, artifact.TrainedAt.Unix()))
	}
	if err := os.WriteFile(versioned, payload, 0o644); err != nil {
		return "", err
	}

	latest := filepath.Join(t.ArtifactDir, fmt.Sprintf("%s_latest.json", name))
	if err := os.WriteFile(latest, payload, 0o644); err != nil {
		return "", err
	}
	return versioned, nil
}
