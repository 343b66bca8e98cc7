package pipeline

import (
	"testing"

	"github.com/kidneysync/platform/pkg/common/models"
	"github.com/kidneysync/platform/pkg/schema"
)

// stubClassifier flags records whose age exceeds a cutoff.
type stubClassifier struct {
	ageIndex float64
}

func (c stubClassifier) Predict(sample []float64) float64 {
	if sample[0] > 50 {
		return 0.9
	}
	return 0.1
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	s := schema.CKD()
	p, err := New(s, stubClassifier{}, s.Names())
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	return p
}

func TestPredictVerdicts(t *testing.T) {
	p := newTestPipeline(t)

	atRisk, err := p.Predict(models.RawRecord{"age": "70"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atRisk.Label != 1 || atRisk.Verdict != VerdictAtRisk {
		t.Fatalf("expected at-risk verdict, got %+v", atRisk)
	}

	healthy, err := p.Predict(models.RawRecord{"age": "30"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if healthy.Label != 0 || healthy.Verdict != VerdictHealthy {
		t.Fatalf("expected healthy verdict, got %+v", healthy)
	}
}

func TestPredictEmptyRecordUsesDefaults(t *testing.T) {
	p := newTestPipeline(t)

	// Default age is 25, below the stub cutoff.
	prediction, err := p.Predict(models.RawRecord{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prediction.Label != 0 {
		t.Fatalf("expected healthy for all-default record, got %+v", prediction)
	}
}

func TestPredictDeterministic(t *testing.T) {
	p := newTestPipeline(t)
	record := models.RawRecord{"age": "60", "rbc": "abnormal"}

	first, err := p.Predict(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := p.Predict(record)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("prediction diverged: %+v vs %+v", again, first)
		}
	}
}

func TestPredictSurfacesValidationErrors(t *testing.T) {
	p := newTestPipeline(t)

	if _, err := p.Predict(models.RawRecord{"bp": "300"}); !schema.IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, err := p.Predict(models.RawRecord{"rbc": "cloudy"}); !schema.IsUnknownCategoryError(err) {
		t.Fatalf("expected UnknownCategoryError, got %v", err)
	}
}

func TestNewRejectsMismatchedFeatures(t *testing.T) {
	s := schema.CKD()

	names := s.Names()
	names[0], names[1] = names[1], names[0]
	if _, err := New(s, stubClassifier{}, names); !schema.IsSchemaMismatchError(err) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
}
