package predictor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kidneysync/platform/pkg/ml/linear"
	"github.com/kidneysync/platform/pkg/schema"
)

func writeArtifact(t *testing.T, dir, model string, artifact Artifact) {
	t.Helper()
	payload, err := json.Marshal(artifact)
	if err != nil {
		t.Fatalf("failed to marshal artifact: %v", err)
	}
	path := filepath.Join(dir, model+"_latest.json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}
}

func logisticArtifact(s schema.Schema) Artifact {
	var artifact Artifact
	artifact.Model.Type = ModelTypeLogistic
	artifact.Model.SchemaVersion = s.Version
	artifact.Model.SchemaFingerprint = s.Fingerprint()
	artifact.Model.FeatureNames = s.Names()
	artifact.Model.Logistic = &linear.Model{
		Bias:         -1,
		Coefficients: make([]float64, len(s.Fields)),
	}
	artifact.TrainedAt = time.Now().UTC()
	return artifact
}

func TestClassifierFromArtifact(t *testing.T) {
	s := schema.CKD()
	dir := t.TempDir()
	writeArtifact(t, dir, "ckd-risk", logisticArtifact(s))

	p := NewPredictor(dir, s)
	clf, artifact, err := p.Classifier("ckd-risk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.Model.Type != ModelTypeLogistic {
		t.Fatalf("unexpected model type %s", artifact.Model.Type)
	}

	sample := make([]float64, len(s.Fields))
	score := clf.Predict(sample)
	if score <= 0 || score >= 1 {
		t.Fatalf("expected probability in (0,1), got %v", score)
	}
}

func TestClassifierRejectsForeignSchema(t *testing.T) {
	s := schema.CKD()
	dir := t.TempDir()

	artifact := logisticArtifact(s)
	artifact.Model.SchemaFingerprint = "deadbeef"
	writeArtifact(t, dir, "ckd-risk", artifact)

	p := NewPredictor(dir, s)
	if _, _, err := p.Classifier("ckd-risk"); !schema.IsSchemaMismatchError(err) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
}

func TestClassifierRejectsReorderedFeatures(t *testing.T) {
	s := schema.CKD()
	dir := t.TempDir()

	artifact := logisticArtifact(s)
	artifact.Model.SchemaFingerprint = ""
	artifact.Model.FeatureNames[0], artifact.Model.FeatureNames[1] =
		artifact.Model.FeatureNames[1], artifact.Model.FeatureNames[0]
	writeArtifact(t, dir, "ckd-risk", artifact)

	p := NewPredictor(dir, s)
	if _, _, err := p.Classifier("ckd-risk"); !schema.IsSchemaMismatchError(err) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	p := NewPredictor(t.TempDir(), schema.CKD())
	if _, err := p.Load("absent"); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestLoadCachesUntilRewrite(t *testing.T) {
	s := schema.CKD()
	dir := t.TempDir()
	writeArtifact(t, dir, "ckd-risk", logisticArtifact(s))

	p := NewPredictor(dir, s)
	first, err := p.Load("ckd-risk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := p.Load("ckd-risk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Model.SchemaFingerprint != again.Model.SchemaFingerprint {
		t.Fatal("cached artifact diverged")
	}
}
