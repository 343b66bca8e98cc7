package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kidneysync/platform/pkg/ml/forest"
	"github.com/kidneysync/platform/pkg/ml/linear"
	"github.com/kidneysync/platform/pkg/pipeline"
	"github.com/kidneysync/platform/pkg/schema"
)

const (
	ModelTypeForest   = "forest"
	ModelTypeLogistic = "logistic"
)

// Artifact is the on-disk representation of a fitted model. The schema
// fingerprint and ordered feature names are recorded alongside the
// parameters so serving can refuse artifacts fit against a different
// schema.
type Artifact struct {
	Model struct {
		Type              string        `json:"type"`
		SchemaVersion     string        `json:"schema_version"`
		SchemaFingerprint string        `json:"schema_fingerprint"`
		FeatureNames      []string      `json:"feature_names"`
		Forest            *forest.Model `json:"forest,omitempty"`
		Logistic          *linear.Model `json:"logistic,omitempty"`
	} `json:"model"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
	JobID     string                 `json:"job_id,omitempty"`
	TrainedAt time.Time              `json:"trained_at"`
}

// Predictor loads model artifacts from disk and hands out classifiers
// bound to them. Artifacts are cached by modification time: a retrain
// that rewrites <model>_latest.json invalidates the cache naturally.
type Predictor struct {
	dir    string
	schema schema.Schema
	cache  map[string]cachedArtifact
	mu     sync.RWMutex
}

type cachedArtifact struct {
	artifact Artifact
	modTime  int64
}

func NewPredictor(dir string, s schema.Schema) *Predictor {
	return &Predictor{
		dir:    dir,
		schema: s,
		cache:  make(map[string]cachedArtifact),
	}
}

// Classifier returns a classifier snapshot for the named model, after
// verifying the artifact matches the live schema.
func (p *Predictor) Classifier(model string) (pipeline.Classifier, Artifact, error) {
	artifact, err := p.Load(model)
	if err != nil {
		return nil, Artifact{}, err
	}

	if artifact.Model.SchemaFingerprint != "" && artifact.Model.SchemaFingerprint != p.schema.Fingerprint() {
		return nil, Artifact{}, schema.SchemaMismatchError{
			Want: p.schema.Names(),
			Got:  artifact.Model.FeatureNames,
		}
	}
	if err := p.schema.CheckCompatible(artifact.Model.FeatureNames); err != nil {
		return nil, Artifact{}, err
	}

	switch artifact.Model.Type {
	case ModelTypeForest:
		if artifact.Model.Forest == nil {
			return nil, Artifact{}, fmt.Errorf("artifact %s missing forest parameters", model)
		}
		return *artifact.Model.Forest, artifact, nil
	case ModelTypeLogistic:
		if artifact.Model.Logistic == nil {
			return nil, Artifact{}, fmt.Errorf("artifact %s missing logistic parameters", model)
		}
		return *artifact.Model.Logistic, artifact, nil
	default:
		return nil, Artifact{}, fmt.Errorf("artifact %s has unknown model type %q", model, artifact.Model.Type)
	}
}

// Load reads the latest artifact for model, re-reading only when the file
// changes on disk.
func (p *Predictor) Load(model string) (Artifact, error) {
	latest := filepath.Join(p.dir, fmt.Sprintf("%s_latest.json", model))
	info, err := os.Stat(latest)
	if err != nil {
		return Artifact{}, err
	}
	mod := info.ModTime().UnixNano()

	p.mu.RLock()
	cached, ok := p.cache[model]
	p.mu.RUnlock()
	if ok && cached.modTime == mod {
		return cached.artifact, nil
	}

	content, err := os.ReadFile(latest)
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, err
	}
	if len(artifact.Model.FeatureNames) == 0 {
		return Artifact{}, fmt.Errorf("artifact %s missing feature names", model)
	}

	p.mu.Lock()
	p.cache[model] = cachedArtifact{artifact: artifact, modTime: mod}
	p.mu.Unlock()
	return artifact, nil
}
